package indexer

import (
	"context"

	"github.com/poiesic/gamescout/core"
)

// DefaultBatchSize is the number of texts sent per provider call.
const DefaultBatchSize = 200

// GameSource loads gold records. storage.GameRepository satisfies it.
type GameSource interface {
	ListGameIDs(ctx context.Context) ([]core.AppID, error)
	GetGames(ctx context.Context, ids ...core.AppID) ([]*core.Game, error)
}

// GameIterator loads a fixed list of gold records in batches.
type GameIterator struct {
	games     GameSource
	ids       []core.AppID
	batchSize int
}

// NewGameIterator creates an iterator over ids.
// batchSize: number of records per batch; <= 0 means DefaultBatchSize
func NewGameIterator(games GameSource, ids []core.AppID, batchSize int) *GameIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &GameIterator{
		games:     games,
		ids:       ids,
		batchSize: batchSize,
	}
}

// ForEach calls fn with each batch of records. Iteration stops on the
// first error from fn or the source. Context cancellation is checked
// between batches.
func (it *GameIterator) ForEach(ctx context.Context, fn func([]*core.Game) error) error {
	for i := 0; i < len(it.ids); i += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(i+it.batchSize, len(it.ids))
		batch, err := it.games.GetGames(ctx, it.ids[i:end]...)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			continue
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}
