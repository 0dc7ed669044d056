package lake

import "errors"

var (
	// ErrPersistFailed wraps any failure writing a bronze batch. The batch
	// is lost as a whole; its identifiers are selected again next run.
	ErrPersistFailed = errors.New("persist failed")

	// ErrCorruptBatch marks a zero-byte or unreadable staged file.
	ErrCorruptBatch = errors.New("corrupt staged batch")

	// ErrEmptyBatch is returned when asked to persist no rows.
	ErrEmptyBatch = errors.New("empty batch")
)
