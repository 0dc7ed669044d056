package badger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
// Nearest-neighbor search is an exact scan over every stored vector.
type EmbeddingRepository struct {
	backend    *Backend
	dimensions int
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository. A positive
// dimensions rejects vectors of any other width.
func NewEmbeddingRepository(backend *Backend, dimensions int) *EmbeddingRepository {
	return &EmbeddingRepository{
		backend:    backend,
		dimensions: dimensions,
	}
}

// Close is a no-op; the backend owns the database.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// AddEmbeddings stores records whose identifier is not yet indexed.
func (r *EmbeddingRepository) AddEmbeddings(ctx context.Context, records ...*core.EmbeddingRecord) error {
	for _, rec := range records {
		if r.dimensions > 0 && len(rec.Vector) != r.dimensions {
			return fmt.Errorf("%w: id %d has %d, store expects %d", storage.ErrDimensionMismatch, rec.AppID, len(rec.Vector), r.dimensions)
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, rec := range records {
			key := makeEmbeddingKey(rec.AppID)
			_, err := tx.Get(key)
			if err == nil {
				continue
			}
			if err != badger.ErrKeyNotFound {
				return err
			}
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = time.Now().UTC()
			}
			value, err := storage.MarshalEmbedding(rec)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// MissingEmbeddings returns the ids with no stored vector, in input order.
func (r *EmbeddingRepository) MissingEmbeddings(ctx context.Context, ids []core.AppID) ([]core.AppID, error) {
	var missing []core.AppID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			_, err := tx.Get(makeEmbeddingKey(id))
			if err == nil {
				continue
			}
			if err != badger.ErrKeyNotFound {
				return err
			}
			missing = append(missing, id)
		}
		return nil
	}, false)
	return missing, err
}

// CountEmbeddings returns the number of stored vectors.
func (r *EmbeddingRepository) CountEmbeddings(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// SearchNearest scans every vector, joins it to its gold record, drops rows
// failing filter and returns the k nearest by L2 distance.
// Vectors without a gold record are skipped.
func (r *EmbeddingRepository) SearchNearest(ctx context.Context, vector []float32, filter core.SearchFilter, k int) ([]*core.SearchResult, error) {
	if r.dimensions > 0 && len(vector) != r.dimensions {
		return nil, fmt.Errorf("%w: query has %d, store expects %d", storage.ErrDimensionMismatch, len(vector), r.dimensions)
	}

	var results []*core.SearchResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.backend.scanPrefix(tx, []byte(embeddingPrefix), func(key, val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stored, err := storage.UnmarshalEmbeddingVector(val)
			if err != nil {
				return err
			}
			if len(stored) != len(vector) {
				return nil
			}

			game, err := readGame(tx, idFromKey(embeddingPrefix, key))
			if err != nil {
				return err
			}
			if game == nil || !filter.Matches(game) {
				return nil
			}

			results = append(results, &core.SearchResult{
				Game:     game,
				Distance: l2Distance(vector, stored),
			})
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by distance ascending, then id for stable ties
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		if a.Game.AppID < b.Game.AppID {
			return -1
		}
		if a.Game.AppID > b.Game.AppID {
			return 1
		}
		return 0
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}
