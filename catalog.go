// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package gamescout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/gamescout/ai"
	"github.com/poiesic/gamescout/ai/openai"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/crawler"
	"github.com/poiesic/gamescout/harvest"
	"github.com/poiesic/gamescout/indexer"
	"github.com/poiesic/gamescout/lake"
	"github.com/poiesic/gamescout/search"
	"github.com/poiesic/gamescout/storage"
	"github.com/poiesic/gamescout/storage/badger"
	"github.com/poiesic/gamescout/storage/postgres"
	"github.com/poiesic/gamescout/transform"
)

// Checkpoint stage names.
const (
	StageSync   = "sync"
	StageFetch  = "fetch"
	StageSilver = "silver"
	StageGold   = "gold"
)

// Catalog wires the data lake, the store, the catalog client and the
// embedding provider of one data directory and exposes each pipeline stage.
type Catalog struct {
	layout   lake.Layout
	bronze   *lake.Bronze
	store    *storage.Store
	provider ai.AIProvider
	lister   harvest.CatalogLister
	fetcher  crawler.DetailFetcher
	options  *catalogOptions
	logger   *slog.Logger
}

// CatalogOption configures a Catalog.
type CatalogOption func(*catalogOptions)

type catalogOptions struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	pgDSN       string
	clientOpts  []crawler.Option
	lister      harvest.CatalogLister
	fetcher     crawler.DetailFetcher
	retry       crawler.RetryPolicy
	workers     int
	concurrency int
	limit       int
	threshold   int
	indexConfig *indexer.Config
	progress    io.Writer
	logger      *slog.Logger
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(config *ai.Config) CatalogOption {
	return func(o *catalogOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The Catalog takes ownership and closes it.
func WithProvider(provider ai.AIProvider) CatalogOption {
	return func(o *catalogOptions) {
		o.provider = provider
	}
}

// WithPostgres stores app ids, gold records and vectors in PostgreSQL
// instead of the embedded database.
func WithPostgres(dsn string) CatalogOption {
	return func(o *catalogOptions) {
		o.pgDSN = dsn
	}
}

// WithClientOptions configures the catalog HTTP client.
func WithClientOptions(opts ...crawler.Option) CatalogOption {
	return func(o *catalogOptions) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// WithSources replaces the catalog client for listing and detail calls.
func WithSources(lister harvest.CatalogLister, fetcher crawler.DetailFetcher) CatalogOption {
	return func(o *catalogOptions) {
		o.lister = lister
		o.fetcher = fetcher
	}
}

// WithRetryPolicy sets the per-identifier retry policy.
func WithRetryPolicy(policy crawler.RetryPolicy) CatalogOption {
	return func(o *catalogOptions) {
		o.retry = policy
	}
}

// WithHarvest sets the worker count, per-worker concurrency and an optional
// cap on identifiers selected per pass (0 means no cap).
func WithHarvest(workers, concurrency, limit int) CatalogOption {
	return func(o *catalogOptions) {
		o.workers = workers
		o.concurrency = concurrency
		o.limit = limit
	}
}

// WithSimilarityThreshold sets the requirement key merge threshold.
func WithSimilarityThreshold(threshold int) CatalogOption {
	return func(o *catalogOptions) {
		o.threshold = threshold
	}
}

// WithIndexerConfig sets the embedding run configuration.
func WithIndexerConfig(config *indexer.Config) CatalogOption {
	return func(o *catalogOptions) {
		o.indexConfig = config
	}
}

// WithProgress sets where progress lines are written.
func WithProgress(w io.Writer) CatalogOption {
	return func(o *catalogOptions) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) CatalogOption {
	return func(o *catalogOptions) {
		o.logger = logger
	}
}

// NewCatalog opens the catalog rooted at dataDir.
func NewCatalog(ctx context.Context, dataDir string, opts ...CatalogOption) (*Catalog, error) {
	options := &catalogOptions{
		aiConfig:    ai.DefaultConfig(),
		retry:       crawler.DefaultRetryPolicy(),
		workers:     harvest.DefaultWorkers,
		concurrency: harvest.DefaultConcurrency,
		threshold:   transform.DefaultSimilarityThreshold,
		indexConfig: indexer.DefaultConfig(),
		progress:    io.Discard,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	layout := lake.Layout{Root: dataDir}
	bronze, err := lake.NewBronze(layout.BronzeDir(), lake.WithBronzeLogger(logger))
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		if provider, err = openai.NewProvider(options.aiConfig); err != nil {
			return nil, err
		}
	}
	dimensions := provider.Embedder().Dimensions()

	var store *storage.Store
	if options.pgDSN != "" {
		store, err = postgres.Open(ctx, postgres.Config{DSN: options.pgDSN, Dimensions: dimensions, Logger: logger})
	} else {
		store, err = badger.OpenStore(layout.DBDir(), dimensions, logger)
	}
	if err != nil {
		provider.Close()
		return nil, err
	}

	lister, fetcher := options.lister, options.fetcher
	if lister == nil || fetcher == nil {
		client, err := crawler.NewClient(append([]crawler.Option{crawler.WithLogger(logger)}, options.clientOpts...)...)
		if err != nil {
			store.Close()
			provider.Close()
			return nil, err
		}
		if lister == nil {
			lister = client
		}
		if fetcher == nil {
			fetcher = client
		}
	}

	return &Catalog{
		layout:   layout,
		bronze:   bronze,
		store:    store,
		provider: provider,
		lister:   lister,
		fetcher:  fetcher,
		options:  options,
		logger:   logger,
	}, nil
}

// Close releases the provider and then the store.
func (c *Catalog) Close() error {
	if err := c.provider.Close(); err != nil {
		c.logger.Error("error closing AI provider", "err", err)
	}
	if err := c.store.Close(); err != nil {
		c.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

// Layout returns the data directory layout.
func (c *Catalog) Layout() lake.Layout {
	return c.layout
}

// Store returns the repositories.
func (c *Catalog) Store() *storage.Store {
	return c.store
}

// SyncIDs records identifiers from the catalog listing that are not yet known.
func (c *Catalog) SyncIDs(ctx context.Context) (int, error) {
	added, err := harvest.SyncCatalog(ctx, c.lister, c.store.AppIDs)
	if err != nil {
		return 0, err
	}
	c.logger.Info("synced catalog listing", "new", added)
	return added, c.checkpoint(ctx, StageSync, added)
}

// Fetch stages a detail row for every known identifier not yet in bronze.
func (c *Catalog) Fetch(ctx context.Context) (*harvest.RunReport, error) {
	retrier, err := crawler.NewRetrier(c.fetcher, c.options.retry, c.logger)
	if err != nil {
		return nil, err
	}
	orchestrator, err := harvest.NewOrchestrator(retrier, c.bronze,
		harvest.WithWorkers(c.options.workers),
		harvest.WithConcurrency(c.options.concurrency),
		harvest.WithProgress(c.options.progress),
		harvest.WithLogger(c.logger),
	)
	if err != nil {
		return nil, err
	}
	defer orchestrator.Release()

	selector, err := harvest.NewSelector(c.store.AppIDs, c.bronze, c.options.limit)
	if err != nil {
		return nil, err
	}

	report, err := harvest.NewHarvester(selector, orchestrator, 0, c.logger).Run(ctx)
	if err != nil {
		return report, err
	}
	return report, c.checkpoint(ctx, StageFetch, report.Persisted)
}

// Silver rebuilds the deduplicated silver dataset from bronze.
func (c *Catalog) Silver(ctx context.Context) (*lake.CanonicalizeReport, error) {
	report, err := lake.NewCanonicalizer(c.bronze, c.layout.SilverPath(), c.logger).Run(ctx)
	if err != nil {
		return nil, err
	}
	return report, c.checkpoint(ctx, StageSilver, report.Unique)
}

// Gold normalizes silver into the gold dataset and replaces the queryable
// gold table with it. The requirement vocabulary is saved for the next run.
func (c *Catalog) Gold(ctx context.Context) (*transform.NormalizeReport, error) {
	details, err := lake.ReadSilver(c.layout.SilverPath())
	if err != nil {
		return nil, fmt.Errorf("reading silver: %w", err)
	}

	registry, err := transform.LoadKeyRegistry(c.layout.VocabularyPath(), c.options.threshold)
	if err != nil {
		return nil, err
	}
	corrections, err := c.correctionTable(details)
	if err != nil {
		return nil, err
	}

	normalizer, err := transform.NewNormalizer(registry, corrections, transform.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	games, report, err := normalizer.Normalize(ctx, details)
	if err != nil {
		return nil, err
	}

	if err := lake.WriteGold(c.layout.GoldPath(), games); err != nil {
		return nil, err
	}
	if err := c.store.Games.ReplaceGames(ctx, games); err != nil {
		return nil, fmt.Errorf("loading gold: %w", err)
	}
	if err := registry.Save(c.layout.VocabularyPath()); err != nil {
		return nil, err
	}
	return report, c.checkpoint(ctx, StageGold, len(games))
}

func (c *Catalog) correctionTable(details []core.StagedDetail) (*transform.CorrectionTable, error) {
	path := c.layout.CorrectionsPath()
	if _, err := os.Stat(path); err == nil {
		return transform.LoadCorrectionTable(path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	c.logger.Info("no correction table, using observed labels", "path", path)
	return transform.IdentityCorrectionTable(transform.ObservedLabels(details)), nil
}

// Embed computes vectors for gold records that have none.
func (c *Catalog) Embed(ctx context.Context) (*indexer.Report, error) {
	ix, err := indexer.NewIndexer(c.store.Games, c.store.Embeddings, c.provider.Embedder(), c.options.indexConfig,
		indexer.WithCheckpoints(c.store.Checkpoints),
		indexer.WithProgress(c.options.progress),
		indexer.WithLogger(c.logger),
	)
	if err != nil {
		return nil, err
	}
	return ix.Run(ctx)
}

// NewSearcher creates a searcher over the catalog's store and provider.
func (c *Catalog) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(c.store.Embeddings, c.provider, opts...)
}

// RunReport collects the reports of a full pipeline run.
type RunReport struct {
	NewIDs   int
	Fetch    *harvest.RunReport
	Silver   *lake.CanonicalizeReport
	Gold     *transform.NormalizeReport
	Embed    *indexer.Report
	Duration time.Duration
}

// RunAll runs every stage in order: listing sync, fetch, silver, gold, embed.
func (c *Catalog) RunAll(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{}

	var err error
	if report.NewIDs, err = c.SyncIDs(ctx); err != nil {
		return report, fmt.Errorf("sync: %w", err)
	}
	if report.Fetch, err = c.Fetch(ctx); err != nil {
		return report, fmt.Errorf("fetch: %w", err)
	}
	if report.Silver, err = c.Silver(ctx); err != nil {
		return report, fmt.Errorf("silver: %w", err)
	}
	if report.Gold, err = c.Gold(ctx); err != nil {
		return report, fmt.Errorf("gold: %w", err)
	}
	if report.Embed, err = c.Embed(ctx); err != nil {
		return report, fmt.Errorf("embed: %w", err)
	}

	report.Duration = time.Since(start)
	c.logger.Info("pipeline complete", "duration", report.Duration.Round(time.Millisecond))
	return report, nil
}

func (c *Catalog) checkpoint(ctx context.Context, stage string, processed int) error {
	return c.store.Checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Stage: stage, Processed: processed})
}
