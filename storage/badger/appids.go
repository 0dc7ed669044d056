package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/storage"
)

// AppIDRepository implements storage.AppIDRepository for BadgerDB.
type AppIDRepository struct {
	backend *Backend
}

var _ storage.AppIDRepository = (*AppIDRepository)(nil)

// NewAppIDRepository creates a new AppIDRepository.
func NewAppIDRepository(backend *Backend) *AppIDRepository {
	return &AppIDRepository{backend: backend}
}

// Close is a no-op; the backend owns the database.
func (r *AppIDRepository) Close() error {
	return nil
}

// AddAppIDs inserts entries not already present.
func (r *AppIDRepository) AddAppIDs(ctx context.Context, entries ...core.CatalogEntry) (int, error) {
	// Collect the entries that are new in a read pass, then write them in
	// a batch; a full catalog listing is too large for one transaction.
	var fresh []core.CatalogEntry
	seen := make(map[core.AppID]struct{}, len(entries))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, e := range entries {
			if _, dup := seen[e.AppID]; dup {
				continue
			}
			seen[e.AppID] = struct{}{}
			_, err := tx.Get(makeAppIDKey(e.AppID))
			if err == nil {
				continue
			}
			if err != badger.ErrKeyNotFound {
				return err
			}
			fresh = append(fresh, e)
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	wb := r.backend.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range fresh {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		value, err := storage.MarshalCatalogEntry(e)
		if err != nil {
			return 0, err
		}
		if err := wb.Set(makeAppIDKey(e.AppID), value); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// ListAppIDs returns every known identifier in ascending order.
func (r *AppIDRepository) ListAppIDs(ctx context.Context) ([]core.AppID, error) {
	var ids []core.AppID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(appIDPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			ids = append(ids, idFromKey(appIDPrefix, iter.Item().Key()))
		}
		return nil
	}, false)
	return ids, err
}

// CountAppIDs returns the number of known identifiers.
func (r *AppIDRepository) CountAppIDs(ctx context.Context) (int, error) {
	ids, err := r.ListAppIDs(ctx)
	return len(ids), err
}
