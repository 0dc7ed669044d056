package indexer

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrGamesRequired indicates a nil gold repository was provided.
	ErrGamesRequired = errors.New("game repository is required")

	// ErrEmbeddingsRequired indicates a nil embedding repository was provided.
	ErrEmbeddingsRequired = errors.New("embedding repository is required")

	// ErrEmbedderRequired indicates a nil embedder was provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrCountMismatch indicates the provider returned a different number
	// of vectors than texts sent.
	ErrCountMismatch = errors.New("embedding count mismatch")
)
