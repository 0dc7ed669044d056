// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/poiesic/gamescout/core"
)

// MarshalAppID serializes an AppID to 8 big-endian bytes, so encoded ids
// sort numerically.
func MarshalAppID(id core.AppID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalAppID deserializes an AppID from bytes.
func UnmarshalAppID(data []byte) (core.AppID, error) {
	if len(data) < 8 {
		return 0, ErrTruncatedData
	}
	return core.AppID(binary.BigEndian.Uint64(data)), nil
}

// MarshalCatalogEntry serializes a CatalogEntry to bytes.
func MarshalCatalogEntry(entry core.CatalogEntry) ([]byte, error) {
	return marshal(entry)
}

// UnmarshalCatalogEntry deserializes a CatalogEntry from bytes.
func UnmarshalCatalogEntry(data []byte) (core.CatalogEntry, error) {
	var entry core.CatalogEntry
	err := unmarshal(data, &entry)
	return entry, err
}

// MarshalGame serializes a Game to bytes.
func MarshalGame(game *core.Game) ([]byte, error) {
	return marshal(game)
}

// UnmarshalGame deserializes a Game from bytes.
func UnmarshalGame(data []byte) (*core.Game, error) {
	var game core.Game
	if err := unmarshal(data, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) ([]byte, error) {
	return marshal(checkpoint)
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	var checkpoint core.Checkpoint
	if err := unmarshal(data, &checkpoint); err != nil {
		return nil, err
	}
	return &checkpoint, nil
}

// embeddingMeta is the non-vector part of an EmbeddingRecord.
type embeddingMeta struct {
	AppID     core.AppID `json:"id"`
	Name      string     `json:"name"`
	Text      string     `json:"text"`
	CreatedAt int64      `json:"created_at"`
}

// MarshalEmbedding serializes an EmbeddingRecord to bytes.
// Layout: uint32 dimension count, little-endian float32 values, JSON metadata.
func MarshalEmbedding(record *core.EmbeddingRecord) ([]byte, error) {
	var createdAt int64
	if !record.CreatedAt.IsZero() {
		createdAt = record.CreatedAt.UnixMicro()
	}
	meta, err := marshal(embeddingMeta{
		AppID:     record.AppID,
		Name:      record.Name,
		Text:      record.Text,
		CreatedAt: createdAt,
	})
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 4+4*len(record.Vector)+len(meta))
	binary.LittleEndian.PutUint32(buf, uint32(len(record.Vector)))
	offset := 4
	for _, v := range record.Vector {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
		offset += 4
	}
	copy(buf[offset:], meta)
	return buf, nil
}

// UnmarshalEmbedding deserializes an EmbeddingRecord from bytes.
func UnmarshalEmbedding(data []byte) (*core.EmbeddingRecord, error) {
	vector, rest, err := decodeVector(data)
	if err != nil {
		return nil, err
	}
	var meta embeddingMeta
	if err := unmarshal(rest, &meta); err != nil {
		return nil, err
	}
	return &core.EmbeddingRecord{
		AppID:     meta.AppID,
		Name:      meta.Name,
		Text:      meta.Text,
		Vector:    vector,
		CreatedAt: timeFromMicro(meta.CreatedAt),
	}, nil
}

// UnmarshalEmbeddingVector decodes only the vector of a serialized
// EmbeddingRecord.
func UnmarshalEmbeddingVector(data []byte) ([]float32, error) {
	vector, _, err := decodeVector(data)
	return vector, err
}

func decodeVector(data []byte) ([]float32, []byte, error) {
	if len(data) < 4 {
		return nil, nil, ErrTruncatedData
	}
	dims := int(binary.LittleEndian.Uint32(data))
	end := 4 + 4*dims
	if len(data) < end {
		return nil, nil, ErrTruncatedData
	}
	vector := make([]float32, dims)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4+4*i:]))
	}
	return vector, data[end:], nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return ErrTruncatedData
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return nil
}

func timeFromMicro(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}
