package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the catalog reports the item does not exist.
	// Expected and terminal; never retried.
	ErrNotFound = errors.New("app not found")

	// ErrRetryExhausted marks a detail replaced by a placeholder after
	// every attempt failed transiently. It is logged, never returned to callers.
	ErrRetryExhausted = errors.New("retries exhausted")

	// ErrInvalidMaxTries is returned when a retry policy allows no attempts.
	ErrInvalidMaxTries = errors.New("max tries must be greater than 0")

	// ErrFetcherRequired is returned when a retrier has no client.
	ErrFetcherRequired = errors.New("detail fetcher required")
)

// TransientError is a network or service failure worth retrying.
type TransientError struct {
	// StatusCode is the HTTP status, or 0 when no response arrived.
	StatusCode int
	Cause      error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient failure: status %d: %v", e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("transient failure: %v", e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
