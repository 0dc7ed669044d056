package transform

import "errors"

var (
	// ErrCorrectionMiss marks a category or genre label with no entry in the
	// correction table. The label is dropped and the record proceeds.
	ErrCorrectionMiss = errors.New("no correction for label")

	// ErrVocabularyVersion is returned for a vocabulary file this build cannot read.
	ErrVocabularyVersion = errors.New("unsupported vocabulary version")

	// ErrRegistryRequired is returned when a normalizer has no key registry.
	ErrRegistryRequired = errors.New("key registry required")

	// ErrCorrectionsRequired is returned when a normalizer has no correction table.
	ErrCorrectionsRequired = errors.New("correction table required")
)
