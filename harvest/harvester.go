package harvest

import (
	"context"
	"log/slog"

	"github.com/poiesic/gamescout/core"
)

// CatalogLister returns the full catalog listing. crawler.Client satisfies it.
type CatalogLister interface {
	FetchAppList(ctx context.Context) ([]core.CatalogEntry, error)
}

// IDRegistry stores catalog entries with insert-if-absent semantics.
type IDRegistry interface {
	IDSource
	AddAppIDs(ctx context.Context, entries ...core.CatalogEntry) (int, error)
}

// SyncCatalog fetches the listing and records identifiers not seen before.
// It returns the number of new identifiers.
func SyncCatalog(ctx context.Context, lister CatalogLister, registry IDRegistry) (int, error) {
	if lister == nil {
		return 0, ErrListerRequired
	}
	if registry == nil {
		return 0, ErrIDSourceRequired
	}
	entries, err := lister.FetchAppList(ctx)
	if err != nil {
		return 0, err
	}
	return registry.AddAppIDs(ctx, entries...)
}

// Harvester repeats select-then-fetch passes until nothing is pending or a
// pass makes no progress. Every identifier fetched ends up staged, either
// as a detail, a placeholder or a tombstone, so passes converge.
type Harvester struct {
	selector     *Selector
	orchestrator *Orchestrator
	maxPasses    int
	logger       *slog.Logger
}

// NewHarvester creates a Harvester. maxPasses <= 0 means no cap.
func NewHarvester(selector *Selector, orchestrator *Orchestrator, maxPasses int, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harvester{
		selector:     selector,
		orchestrator: orchestrator,
		maxPasses:    maxPasses,
		logger:       logger.With("component", "harvester"),
	}
}

// Run executes passes and returns the aggregated report.
func (h *Harvester) Run(ctx context.Context) (*RunReport, error) {
	total := &RunReport{}
	for pass := 1; h.maxPasses <= 0 || pass <= h.maxPasses; pass++ {
		pending, err := h.selector.Select(ctx)
		if err != nil {
			return total, err
		}
		if len(pending) == 0 {
			h.logger.Info("nothing pending", "pass", pass)
			return total, nil
		}

		h.logger.Info("starting pass", "pass", pass, "pending", len(pending))
		report, err := h.orchestrator.Run(ctx, pending)
		if report != nil {
			total.merge(report)
		}
		if err != nil {
			return total, err
		}
		if report.Persisted == 0 {
			h.logger.Warn("pass persisted nothing, stopping", "pass", pass, "dropped", report.Dropped)
			return total, nil
		}
	}
	return total, nil
}

func (r *RunReport) merge(o *RunReport) {
	r.Requested += o.Requested
	r.Found += o.Found
	r.NotFound += o.NotFound
	r.Unavailable += o.Unavailable
	r.Persisted += o.Persisted
	r.Dropped += o.Dropped
	r.Batches = append(r.Batches, o.Batches...)
}
