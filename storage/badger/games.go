package badger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/storage"
)

// GameRepository implements storage.GameRepository for BadgerDB.
type GameRepository struct {
	backend *Backend
}

var _ storage.GameRepository = (*GameRepository)(nil)

// NewGameRepository creates a new GameRepository.
func NewGameRepository(backend *Backend) *GameRepository {
	return &GameRepository{backend: backend}
}

// Close is a no-op; the backend owns the database.
func (r *GameRepository) Close() error {
	return nil
}

// ReplaceGames drops every gold record and label, then loads games.
func (r *GameRepository) ReplaceGames(ctx context.Context, games []*core.Game) error {
	for _, g := range games {
		if err := core.ValidateGame(g); err != nil {
			return err
		}
	}

	if err := r.backend.DropPrefix([]byte(gamePrefix), []byte(categoryPrefix), []byte(genrePrefix)); err != nil {
		return err
	}

	wb := r.backend.NewWriteBatch()
	defer wb.Cancel()
	for _, g := range games {
		if err := ctx.Err(); err != nil {
			return err
		}
		value, err := storage.MarshalGame(g)
		if err != nil {
			return err
		}
		if err := wb.Set(makeGameKey(g.AppID), value); err != nil {
			return err
		}
		for _, c := range g.Categories {
			if err := wb.Set(makeLabelKey(categoryPrefix, c), []byte(c)); err != nil {
				return err
			}
		}
		for _, genre := range g.Genres {
			if err := wb.Set(makeLabelKey(genrePrefix, genre), []byte(genre)); err != nil {
				return err
			}
		}
	}
	return wb.Flush()
}

// GetGame retrieves one gold record.
func (r *GameRepository) GetGame(ctx context.Context, id core.AppID) (*core.Game, error) {
	var game *core.Game
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		game, err = readGame(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, storage.ErrNotFound
	}
	return game, nil
}

// GetGames retrieves gold records by identifier, skipping missing ones.
func (r *GameRepository) GetGames(ctx context.Context, ids ...core.AppID) ([]*core.Game, error) {
	var games []*core.Game
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			game, err := readGame(tx, id)
			if err != nil {
				return err
			}
			if game != nil {
				games = append(games, game)
			}
		}
		return nil
	}, false)
	return games, err
}

// ListGameIDs returns every gold identifier in ascending order.
func (r *GameRepository) ListGameIDs(ctx context.Context) ([]core.AppID, error) {
	var ids []core.AppID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(gamePrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			ids = append(ids, idFromKey(gamePrefix, iter.Item().Key()))
		}
		return nil
	}, false)
	return ids, err
}

// Categories returns the distinct category labels, sorted.
func (r *GameRepository) Categories(ctx context.Context) ([]string, error) {
	return r.labels(categoryPrefix)
}

// Genres returns the distinct genre labels, sorted.
func (r *GameRepository) Genres(ctx context.Context) ([]string, error) {
	return r.labels(genrePrefix)
}

func (r *GameRepository) labels(prefix string) ([]string, error) {
	labels := []string{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.backend.scanPrefix(tx, []byte(prefix), func(_, val []byte) error {
			labels = append(labels, string(val))
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	sort.Strings(labels)
	return labels, nil
}

// readGame reads a gold record; returns nil, nil when absent.
func readGame(tx *badger.Txn, id core.AppID) (*core.Game, error) {
	item, err := tx.Get(makeGameKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var game *core.Game
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		game, unmarshalErr = storage.UnmarshalGame(val)
		return unmarshalErr
	})
	return game, err
}
