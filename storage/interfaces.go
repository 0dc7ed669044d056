package storage

import (
	"context"

	"github.com/poiesic/gamescout/core"
)

// Repository is the behavior shared by every repository. Each write method
// is atomic on its own; implementations must be safe for concurrent use.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// AppIDRepository is the registry of every identifier the catalog listing
// has reported. It only grows.
type AppIDRepository interface {
	Repository
	// AddAppIDs inserts entries that are not already present and returns
	// how many were new. Existing entries are left untouched.
	AddAppIDs(ctx context.Context, entries ...core.CatalogEntry) (int, error)

	// ListAppIDs returns every known identifier in ascending order.
	ListAppIDs(ctx context.Context) ([]core.AppID, error)

	// CountAppIDs returns the number of known identifiers.
	CountAppIDs(ctx context.Context) (int, error)
}

// GameRepository holds the gold dataset in queryable form.
type GameRepository interface {
	Repository
	// ReplaceGames swaps the whole gold table for games.
	ReplaceGames(ctx context.Context, games []*core.Game) error

	// GetGame retrieves one gold record.
	// Returns ErrNotFound if the record doesn't exist.
	GetGame(ctx context.Context, id core.AppID) (*core.Game, error)

	// GetGames retrieves gold records by identifier.
	// Returns only the records that exist (no error for missing records).
	GetGames(ctx context.Context, ids ...core.AppID) ([]*core.Game, error)

	// ListGameIDs returns every gold identifier in ascending order.
	ListGameIDs(ctx context.Context) ([]core.AppID, error)

	// Categories returns the distinct category labels, sorted.
	Categories(ctx context.Context) ([]string, error)

	// Genres returns the distinct genre labels, sorted.
	Genres(ctx context.Context) ([]string, error)
}

// EmbeddingRepository holds one vector per gold record. Rows are only
// ever added; an identifier that already has a vector is never rewritten.
type EmbeddingRepository interface {
	Repository
	// AddEmbeddings stores records. Records whose identifier is already
	// indexed are skipped.
	AddEmbeddings(ctx context.Context, records ...*core.EmbeddingRecord) error

	// MissingEmbeddings returns the subset of ids with no stored vector,
	// preserving input order.
	MissingEmbeddings(ctx context.Context, ids []core.AppID) ([]core.AppID, error)

	// CountEmbeddings returns the number of stored vectors.
	CountEmbeddings(ctx context.Context) (int, error)

	// SearchNearest joins vectors to gold records, keeps rows passing
	// filter and returns the k nearest to vector by ascending L2 distance.
	SearchNearest(ctx context.Context, vector []float32, filter core.SearchFilter, k int) ([]*core.SearchResult, error)
}

// CheckpointRepository records the last completed run of each stage.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, stamping UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint for stage, or nil if none exists.
	LoadCheckpoint(ctx context.Context, stage string) (*core.Checkpoint, error)
}

// Store bundles the repositories one backend provides.
type Store struct {
	AppIDs      AppIDRepository
	Games       GameRepository
	Embeddings  EmbeddingRepository
	Checkpoints CheckpointRepository
	closer      func() error
}

// NewStore assembles a Store. closer releases the shared backend.
func NewStore(appIDs AppIDRepository, games GameRepository, embeddings EmbeddingRepository,
	checkpoints CheckpointRepository, closer func() error) *Store {
	return &Store{
		AppIDs:      appIDs,
		Games:       games,
		Embeddings:  embeddings,
		Checkpoints: checkpoints,
		closer:      closer,
	}
}

// Close releases the repositories and then the backend.
func (s *Store) Close() error {
	var firstErr error
	for _, r := range []Repository{s.Embeddings, s.Games, s.AppIDs} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.closer != nil {
		if err := s.closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
