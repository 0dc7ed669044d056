package ai

import "errors"

// ErrDimensionMismatch is returned when a provider answers with vectors
// of a width other than the configured one.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")
