package transform

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/poiesic/gamescout/core"
	"golang.org/x/sync/errgroup"
)

// NormalizeReport summarizes one gold run.
type NormalizeReport struct {
	Input            int
	Kept             int
	NotGame          int
	Unavailable      int
	CorrectionMisses int
	Keys             int
}

// Normalizer turns silver details into gold records.
type Normalizer struct {
	registry    *KeyRegistry
	corrections *CorrectionTable
	concurrency int
	logger      *slog.Logger
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer) error

// WithConcurrency sets how many records are rewritten at once.
// Default is runtime.NumCPU().
func WithConcurrency(n int) NormalizerOption {
	return func(nz *Normalizer) error {
		if n < 1 {
			n = 1
		}
		nz.concurrency = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) NormalizerOption {
	return func(nz *Normalizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		nz.logger = logger
		return nil
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(registry *KeyRegistry, corrections *CorrectionTable, opts ...NormalizerOption) (*Normalizer, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if corrections == nil {
		return nil, ErrCorrectionsRequired
	}
	nz := &Normalizer{
		registry:    registry,
		corrections: corrections,
		concurrency: runtime.NumCPU(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(nz); err != nil {
			return nil, err
		}
	}
	nz.logger = nz.logger.With("component", "normalizer")
	return nz, nil
}

// Normalize rewrites every primary-content detail into a gold record.
//
// The key vocabulary is built first in a single pass over the records
// sorted by identifier, so the canonical keys do not depend on scheduling.
// Records are then rewritten concurrently; by then every raw key resolves
// from the registry's memo. Output is ordered by identifier.
func (n *Normalizer) Normalize(ctx context.Context, details []core.StagedDetail) ([]*core.Game, *NormalizeReport, error) {
	report := &NormalizeReport{Input: len(details)}

	var eligible []*core.AppDetail
	for _, s := range details {
		switch {
		case s.Status == core.StatusNotFound || s.Detail == nil:
			continue
		case s.Status == core.StatusUnavailable || s.Detail.IsPlaceholder():
			report.Unavailable++
		case s.Detail.Type != core.GameType:
			report.NotGame++
		default:
			eligible = append(eligible, s.Detail)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].SteamAppID < eligible[j].SteamAppID })

	for _, d := range eligible {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		for _, raw := range requirementFragments(d) {
			for _, key := range RawRequirementKeys(raw) {
				n.registry.Canonical(key)
			}
		}
	}
	report.Keys = n.registry.Len()
	n.logger.Debug("requirement vocabulary built", "keys", report.Keys)

	games := make([]*core.Game, len(eligible))
	var (
		mu     sync.Mutex
		misses int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for i, d := range eligible {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			game, missed := n.NormalizeOne(d)
			games[i] = game
			if missed > 0 {
				mu.Lock()
				misses += missed
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	report.Kept = len(games)
	report.CorrectionMisses = misses
	n.logger.Info("normalized details", "input", report.Input, "kept", report.Kept, "notGame", report.NotGame,
		"unavailable", report.Unavailable, "correctionMisses", report.CorrectionMisses, "keys", report.Keys)
	return games, report, nil
}

// NormalizeOne rewrites a single detail and returns the number of labels
// dropped for lack of a correction entry. It does not filter by type.
func (n *Normalizer) NormalizeOne(d *core.AppDetail) (*core.Game, int) {
	g := &core.Game{
		AppID:               d.SteamAppID,
		Name:                d.Name,
		IsFree:              d.IsFree,
		DetailedDescription: StripHTML(d.DetailedDescription),
		AboutTheGame:        StripHTML(d.AboutTheGame),
		ShortDescription:    StripHTML(d.ShortDescription),
		SupportedLanguages:  StripHTML(d.SupportedLanguages),
		ReleaseDate:         d.ReleaseDate.Date,
		ContentNotes:        StripHTML(d.ContentDescriptors.Notes),
		HeaderImage:         d.HeaderImage,
		Website:             d.Website,
		Developers:          d.Developers,
		Publishers:          d.Publishers,
	}

	if d.PriceOverview != nil {
		g.Currency = d.PriceOverview.Currency
		g.Price = float64(d.PriceOverview.Final) / 100
	}
	if d.Recommendations != nil {
		g.Recommendations = d.Recommendations.Total
	}

	for _, slot := range requirementSlots(d) {
		if slot.raw == "" {
			continue
		}
		g.Requirements = append(g.Requirements, core.Requirement{
			Platform: slot.platform,
			Level:    slot.level,
			Text:     StripHTML(slot.raw),
			Fields:   ParseRequirements(slot.raw, n.registry),
		})
	}

	var missed int
	g.Categories, missed = n.correct(d.SteamAppID, "category", d.Categories)
	genres, genreMisses := n.correct(d.SteamAppID, "genre", d.Genres)
	g.Genres = genres
	return g, missed + genreMisses
}

func (n *Normalizer) correct(id core.AppID, kind string, labels []core.Label) ([]string, int) {
	raw := make([]string, 0, len(labels))
	for _, l := range labels {
		raw = append(raw, l.Description)
	}
	corrected, misses := n.corrections.Correct(raw)
	for _, m := range misses {
		n.logger.Warn("dropping label", "appid", id, "kind", kind, "label", m, "err", ErrCorrectionMiss)
	}
	return corrected, len(misses)
}

type requirementSlot struct {
	platform core.Platform
	level    core.Level
	raw      string
}

func requirementSlots(d *core.AppDetail) []requirementSlot {
	return []requirementSlot{
		{core.PlatformWindows, core.LevelMinimum, d.PCRequirements.Minimum},
		{core.PlatformWindows, core.LevelRecommended, d.PCRequirements.Recommended},
		{core.PlatformMac, core.LevelMinimum, d.MacRequirements.Minimum},
		{core.PlatformMac, core.LevelRecommended, d.MacRequirements.Recommended},
		{core.PlatformLinux, core.LevelMinimum, d.LinuxRequirements.Minimum},
		{core.PlatformLinux, core.LevelRecommended, d.LinuxRequirements.Recommended},
	}
}

func requirementFragments(d *core.AppDetail) []string {
	slots := requirementSlots(d)
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if s.raw != "" {
			out = append(out, s.raw)
		}
	}
	return out
}

// ObservedLabels returns every distinct category and genre label across
// details, sorted. It seeds an identity correction table when no table file
// is configured.
func ObservedLabels(details []core.StagedDetail) []string {
	set := make(map[string]struct{})
	for _, s := range details {
		if s.Detail == nil {
			continue
		}
		for _, l := range s.Detail.Categories {
			set[l.Description] = struct{}{}
		}
		for _, l := range s.Detail.Genres {
			set[l.Description] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
