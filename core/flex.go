package core

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// FlexInt decodes an integer the detail API sometimes sends as a quoted string.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Values like "18+" carry no usable number.
			*f = 0
			return nil
		}
		*f = FlexInt(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// FlexRequirements decodes a requirements block, which the detail API
// sends as an empty array when a platform has no requirements.
type FlexRequirements Requirements

func (r *FlexRequirements) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '[' || bytes.Equal(data, []byte("null")) {
		*r = FlexRequirements{}
		return nil
	}
	var req Requirements
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	*r = FlexRequirements(req)
	return nil
}
