package crawler

import (
	"context"

	"github.com/poiesic/gamescout/core"
)

// Outcome classifies a single detail call.
type Outcome int

const (
	// Found means the detail payload was decoded.
	Found Outcome = iota + 1
	// NotFound means the service answered but marked the item unsuccessful.
	NotFound
	// Transient means the call failed and may succeed later.
	Transient
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// DetailResult is the classified response to one detail call.
// Detail is set only for Found; Err only for Transient.
type DetailResult struct {
	Outcome Outcome
	Detail  *core.AppDetail
	Err     error
}

func foundResult(detail *core.AppDetail) DetailResult {
	return DetailResult{Outcome: Found, Detail: detail}
}

func notFoundResult() DetailResult {
	return DetailResult{Outcome: NotFound, Err: ErrNotFound}
}

func transientResult(status int, cause error) DetailResult {
	return DetailResult{Outcome: Transient, Err: &TransientError{StatusCode: status, Cause: cause}}
}

// DetailFetcher performs one detail call per identifier with no retries.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id core.AppID) DetailResult
}

// DetailFetcherFunc adapts a function to DetailFetcher.
type DetailFetcherFunc func(ctx context.Context, id core.AppID) DetailResult

func (f DetailFetcherFunc) FetchDetail(ctx context.Context, id core.AppID) DetailResult {
	return f(ctx, id)
}
