package harvest

import "errors"

var (
	// ErrRetrierRequired indicates a nil detail retrier was provided.
	ErrRetrierRequired = errors.New("detail retrier is required")

	// ErrBatchWriterRequired indicates a nil bronze writer was provided.
	ErrBatchWriterRequired = errors.New("batch writer is required")

	// ErrIDSourceRequired indicates a nil identifier registry was provided.
	ErrIDSourceRequired = errors.New("identifier source is required")

	// ErrStagedSourceRequired indicates a nil staged-id source was provided.
	ErrStagedSourceRequired = errors.New("staged source is required")

	// ErrListerRequired indicates a nil catalog lister was provided.
	ErrListerRequired = errors.New("catalog lister is required")

	// ErrInvalidWorkers indicates a non-positive worker count.
	ErrInvalidWorkers = errors.New("worker count must be positive")

	// ErrInvalidConcurrency indicates a non-positive per-worker concurrency.
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
)
