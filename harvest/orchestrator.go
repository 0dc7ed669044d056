package harvest

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/progress"
)

const (
	// DefaultWorkers is the number of disjoint partitions fetched in parallel.
	DefaultWorkers = 5
	// DefaultConcurrency is the number of in-flight retrievals per worker.
	DefaultConcurrency = 10
)

// BatchWriter persists the rows of one worker as a single atomic batch.
// lake.Bronze satisfies it.
type BatchWriter interface {
	WriteBatch(ctx context.Context, rows []core.StagedDetail) (string, error)
}

// RunReport summarizes one orchestrator run.
type RunReport struct {
	Requested   int
	Found       int
	NotFound    int
	Unavailable int
	Persisted   int
	Dropped     int
	Batches     []string
}

func (r *RunReport) add(rows []core.StagedDetail) {
	for _, row := range rows {
		switch row.Status {
		case core.StatusFound:
			r.Found++
		case core.StatusNotFound:
			r.NotFound++
		case core.StatusUnavailable:
			r.Unavailable++
		}
	}
}

// Orchestrator partitions identifiers across a pool of workers. Each worker
// fetches its partition with bounded concurrency and then writes exactly one
// bronze batch. A failed write drops that worker's rows only; they are
// selected again on the next run.
type Orchestrator struct {
	retrier     DetailRetrier
	writer      BatchWriter
	workers     int
	concurrency int
	pool        *ants.Pool
	progressOut io.Writer
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithWorkers sets the number of workers. Default is DefaultWorkers.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			return ErrInvalidWorkers
		}
		o.workers = n
		return nil
	}
}

// WithConcurrency sets the in-flight retrievals per worker.
// Default is DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			return ErrInvalidConcurrency
		}
		o.concurrency = n
		return nil
	}
}

// WithProgress sets where progress lines are written. Default is io.Discard.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) error {
		o.progressOut = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an Orchestrator. Call Release when done.
func NewOrchestrator(retrier DetailRetrier, writer BatchWriter, opts ...Option) (*Orchestrator, error) {
	if retrier == nil {
		return nil, ErrRetrierRequired
	}
	if writer == nil {
		return nil, ErrBatchWriterRequired
	}

	o := &Orchestrator{
		retrier:     retrier,
		writer:      writer,
		workers:     DefaultWorkers,
		concurrency: DefaultConcurrency,
		progressOut: io.Discard,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "orchestrator")

	pool, err := ants.NewPool(o.workers)
	if err != nil {
		return nil, err
	}
	o.pool = pool
	return o, nil
}

// Run fetches and stages ids. Per-identifier and per-batch failures are
// logged and reflected in the report; only cancellation returns an error.
func (o *Orchestrator) Run(ctx context.Context, ids []core.AppID) (*RunReport, error) {
	report := &RunReport{Requested: len(ids)}
	if len(ids) == 0 {
		return report, nil
	}

	fetcher, err := NewFetcher(o.retrier, o.concurrency)
	if err != nil {
		return nil, err
	}

	tracker := progress.NewTracker(o.progressOut, "Fetching details", len(ids), 100)
	tracker.Start()
	defer tracker.Finish()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	for worker, part := range Partition(ids, o.workers) {
		if len(part) == 0 {
			continue
		}
		wg.Add(1)
		submitErr := o.pool.Submit(func() {
			defer wg.Done()
			o.runWorker(ctx, worker, part, fetcher, tracker, report, &mu, &firstErr)
		})
		if submitErr != nil {
			wg.Done()
			return nil, submitErr
		}
	}
	wg.Wait()

	if firstErr != nil {
		return report, firstErr
	}
	return report, ctx.Err()
}

func (o *Orchestrator) runWorker(ctx context.Context, worker int, part []core.AppID, fetcher *Fetcher,
	tracker *progress.Tracker, report *RunReport, mu *sync.Mutex, firstErr *error) {
	logger := o.logger.With("worker", worker)

	rows, err := fetcher.FetchAll(ctx, part, tracker.Increment)
	if err != nil {
		mu.Lock()
		if *firstErr == nil {
			*firstErr = err
		}
		mu.Unlock()
		return
	}

	key, err := o.writer.WriteBatch(ctx, rows)

	mu.Lock()
	defer mu.Unlock()
	report.add(rows)
	if err != nil {
		logger.Error("dropping batch", "rows", len(rows), "err", err)
		report.Dropped += len(rows)
		return
	}
	logger.Debug("persisted batch", "key", key, "rows", len(rows))
	report.Persisted += len(rows)
	report.Batches = append(report.Batches, key)
}

// Release releases the worker pool.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}
