package harvest

import (
	"context"

	"github.com/poiesic/gamescout/core"
	"golang.org/x/sync/errgroup"
)

// DetailRetrier resolves one identifier to a detail, nil (not found) or a
// placeholder. crawler.Retrier satisfies it.
type DetailRetrier interface {
	FetchWithRetry(ctx context.Context, id core.AppID) (*core.AppDetail, error)
}

// Fetcher resolves a list of identifiers with at most Concurrency
// retrieval calls in flight.
type Fetcher struct {
	retrier     DetailRetrier
	concurrency int
}

// NewFetcher creates a Fetcher.
func NewFetcher(retrier DetailRetrier, concurrency int) (*Fetcher, error) {
	if retrier == nil {
		return nil, ErrRetrierRequired
	}
	if concurrency < 1 {
		return nil, ErrInvalidConcurrency
	}
	return &Fetcher{retrier: retrier, concurrency: concurrency}, nil
}

// FetchAll returns one staged row per input identifier, in input order.
// onDone, when set, is called once per resolved identifier. Individual
// identifiers never fail the call; only cancellation of ctx does.
func (f *Fetcher) FetchAll(ctx context.Context, ids []core.AppID, onDone func(int)) ([]core.StagedDetail, error) {
	staged := make([]core.StagedDetail, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			detail, err := f.retrier.FetchWithRetry(gctx, id)
			if err != nil {
				return err
			}
			staged[i] = core.NewStagedDetail(id, detail)
			if onDone != nil {
				onDone(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return staged, nil
}
