package harvest

import (
	"context"
	"slices"

	"github.com/poiesic/gamescout/core"
)

// IDSource lists every identifier known to the catalog.
type IDSource interface {
	ListAppIDs(ctx context.Context) ([]core.AppID, error)
}

// StagedSource reports the identifiers already present in bronze.
// lake.Bronze satisfies it; corrupt batches are removed before the set is built.
type StagedSource interface {
	StagedIDs(ctx context.Context) (map[core.AppID]struct{}, error)
}

// Pending returns all minus staged in ascending order. A positive limit
// caps the result.
func Pending(all []core.AppID, staged map[core.AppID]struct{}, limit int) []core.AppID {
	var pending []core.AppID
	for _, id := range all {
		if _, ok := staged[id]; !ok {
			pending = append(pending, id)
		}
	}
	slices.Sort(pending)
	pending = slices.Compact(pending)
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending
}

// Selector computes the identifiers that still need fetching.
type Selector struct {
	ids    IDSource
	staged StagedSource
	limit  int
}

// NewSelector creates a Selector. A positive limit caps each selection.
func NewSelector(ids IDSource, staged StagedSource, limit int) (*Selector, error) {
	if ids == nil {
		return nil, ErrIDSourceRequired
	}
	if staged == nil {
		return nil, ErrStagedSourceRequired
	}
	return &Selector{ids: ids, staged: staged, limit: limit}, nil
}

// Select returns the pending identifiers.
func (s *Selector) Select(ctx context.Context) ([]core.AppID, error) {
	all, err := s.ids.ListAppIDs(ctx)
	if err != nil {
		return nil, err
	}
	staged, err := s.staged.StagedIDs(ctx)
	if err != nil {
		return nil, err
	}
	return Pending(all, staged, s.limit), nil
}
