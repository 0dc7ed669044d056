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


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/gamescout"
	"github.com/poiesic/gamescout/ai"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/crawler"
	"github.com/poiesic/gamescout/harvest"
	"github.com/poiesic/gamescout/indexer"
	"github.com/poiesic/gamescout/search"
	"github.com/poiesic/gamescout/server"
	"github.com/poiesic/gamescout/transform"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gamescout",
		Usage: "Harvest a storefront catalog and search it semantically",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Root directory of the data lake and database",
				Value:   "data",
				EnvVars: []string{"GAMESCOUT_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "proxy",
				Usage:   "HTTP proxy for catalog requests (host:port)",
				EnvVars: []string{"PROXY"},
			},
			&cli.StringFlag{
				Name:    "proxy-auth",
				Usage:   "Proxy credentials (user:password)",
				EnvVars: []string{"PROXY_AUTH"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Embedding provider API key",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				Value:   ai.DefaultConfig().EmbeddingHost,
				EnvVars: []string{"EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   ai.DefaultConfig().EmbeddingModel,
				EnvVars: []string{"EMBEDDING_MODEL"},
			},
			&cli.IntFlag{
				Name:    "embedding-dimensions",
				Usage:   "Embedding width (1536 or 3072)",
				Value:   ai.DimensionsSmall,
				EnvVars: []string{"EMBEDDING_DIMENSIONS"},
			},
			&cli.StringFlag{
				Name:    "pg-dsn",
				Usage:   "PostgreSQL connection string; uses the embedded store when empty",
				EnvVars: []string{"PG_DSN"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "sync-ids",
				Usage:  "Register every application id in the storefront listing",
				Action: syncIDsCommand,
			},
			{
				Name:   "fetch",
				Usage:  "Fetch details for every id not yet staged",
				Action: fetchCommand,
				Flags:  fetchFlags(),
			},
			{
				Name:   "silver",
				Usage:  "Merge staged batches into the deduplicated silver table",
				Action: silverCommand,
			},
			{
				Name:   "gold",
				Usage:  "Normalize silver rows into gold records",
				Action: goldCommand,
				Flags:  goldFlags(),
			},
			{
				Name:   "embed",
				Usage:  "Embed gold records that have no vector yet",
				Action: embedCommand,
				Flags:  embedFlags(),
			},
			{
				Name:      "search",
				Usage:     "Search gold records by description",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags:     searchFlags(),
			},
			{
				Name:   "serve",
				Usage:  "Serve the search API over HTTP",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   server.DefaultConfig().Addr,
						EnvVars: []string{"GAMESCOUT_ADDR"},
					},
					&cli.StringSliceFlag{
						Name:  "allow-origin",
						Usage: "CORS origin to allow; repeatable, all origins when unset",
					},
				},
			},
			{
				Name:   "run",
				Usage:  "Run sync-ids, fetch, silver, gold and embed in order",
				Action: runCommand,
				Flags:  append(append(fetchFlags(), goldFlags()...), embedFlags()...),
			},
		},
	}
}

func fetchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of partitions fetched in parallel",
			Value: harvest.DefaultWorkers,
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Maximum in-flight requests per worker",
			Value: harvest.DefaultConcurrency,
		},
		&cli.IntFlag{
			Name:  "max-ids",
			Usage: "Maximum ids per pass (0 for all)",
		},
		&cli.IntFlag{
			Name:  "max-tries",
			Usage: "Attempts per id, including the first",
			Value: crawler.DefaultRetryPolicy().MaxTries,
		},
		&cli.DurationFlag{
			Name:  "fetch-delay",
			Usage: "Pause between attempts after a transient failure",
			Value: crawler.DefaultRetryPolicy().Delay,
		},
	}
}

func goldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "similarity-threshold",
			Usage: "Fuzzy score (0-100) at which two keys merge",
			Value: transform.DefaultSimilarityThreshold,
		},
	}
}

func embedFlags() []cli.Flag {
	defaults := indexer.DefaultConfig()
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of records to embed in each batch",
			Value: defaults.BatchSize,
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum retry attempts for failed embedding calls",
			Value: defaults.MaxRetries,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: defaults.RetryDelay,
		},
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "category",
			Usage: "Restrict to games with this category; repeatable",
		},
		&cli.StringSliceFlag{
			Name:  "genre",
			Usage: "Restrict to games with this genre; repeatable",
		},
		&cli.Float64Flag{
			Name:  "price-min",
			Usage: "Lowest price",
		},
		&cli.Float64Flag{
			Name:  "price-max",
			Usage: "Highest price (0 for no upper bound)",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of results",
			Value: search.DefaultLimit,
		},
	}
}

func aiConfigFromFlags(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithDimensions(c.Int("embedding-dimensions")),
		ai.WithAPIKey(c.String("api-key")),
	)
}

func filterFromFlags(c *cli.Context) core.SearchFilter {
	return core.SearchFilter{
		Categories: c.StringSlice("category"),
		Genres:     c.StringSlice("genre"),
		PriceMin:   c.Float64("price-min"),
		PriceMax:   c.Float64("price-max"),
		Limit:      c.Int("limit"),
	}
}

// catalogOptions maps the flags set on c onto catalog options.
// Stage flags absent from the current command keep their defaults.
func catalogOptions(c *cli.Context) ([]gamescout.CatalogOption, error) {
	aiConfig := aiConfigFromFlags(c)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []gamescout.CatalogOption{
		gamescout.WithAIConfig(aiConfig),
		gamescout.WithPostgres(c.String("pg-dsn")),
		gamescout.WithClientOptions(crawler.WithProxy(c.String("proxy"), c.String("proxy-auth"))),
		gamescout.WithProgress(os.Stderr),
		gamescout.WithLogger(slog.Default()),
	}

	if c.IsSet("workers") || c.IsSet("concurrency") || c.IsSet("max-ids") {
		workers, concurrency := c.Int("workers"), c.Int("concurrency")
		if workers <= 0 {
			return nil, fmt.Errorf("workers must be greater than 0")
		}
		if concurrency <= 0 {
			return nil, fmt.Errorf("concurrency must be greater than 0")
		}
		opts = append(opts, gamescout.WithHarvest(workers, concurrency, c.Int("max-ids")))
	}
	if c.IsSet("max-tries") || c.IsSet("fetch-delay") {
		policy := crawler.RetryPolicy{MaxTries: c.Int("max-tries"), Delay: c.Duration("fetch-delay")}
		if err := policy.Validate(); err != nil {
			return nil, err
		}
		opts = append(opts, gamescout.WithRetryPolicy(policy))
	}
	if c.IsSet("similarity-threshold") {
		threshold := c.Int("similarity-threshold")
		if threshold < 0 || threshold > 100 {
			return nil, fmt.Errorf("similarity-threshold must be between 0 and 100")
		}
		opts = append(opts, gamescout.WithSimilarityThreshold(threshold))
	}
	if c.IsSet("batch-size") || c.IsSet("max-retries") || c.IsSet("retry-delay") {
		config := indexer.DefaultConfig()
		config.BatchSize = c.Int("batch-size")
		config.MaxRetries = c.Int("max-retries")
		config.RetryDelay = c.Duration("retry-delay")
		if config.BatchSize <= 0 {
			return nil, fmt.Errorf("batch-size must be greater than 0")
		}
		if config.MaxRetries <= 0 {
			return nil, fmt.Errorf("max-retries must be greater than 0")
		}
		opts = append(opts, gamescout.WithIndexerConfig(config))
	}
	return opts, nil
}

func openCatalog(c *cli.Context) (*gamescout.Catalog, error) {
	opts, err := catalogOptions(c)
	if err != nil {
		return nil, err
	}
	catalog, err := gamescout.NewCatalog(c.Context, c.String("data-dir"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return catalog, nil
}

func syncIDsCommand(c *cli.Context) error {
	catalog, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer catalog.Close()

	added, err := catalog.SyncIDs(c.Context)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	fmt.Printf("Registered %d new ids\n", added)
	return nil
}

func fetchCommand(c *cli.Context) error {
	catalog, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer catalog.Close()

	report, err := catalog.Fetch(c.Context)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	printFetchReport(report)
	return nil
}

func silverCommand(c *cli.Context) error {
	catalog, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer catalog.Close()

	report, err := catalog.Silver(c.Context)
	if err != nil {
		return fmt.Errorf("silver failed: %w", err)
	}
	fmt.Printf("Silver: %d batches (%d skipped), %d rows, %d unique, %d duplicates\n",
		report.Batches, report.Skipped, report.Rows, report.Unique, report.Duplicates)
	return nil
}

func goldCommand(c *cli.Context) error {
	catalog, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer catalog.Close()

	report, err := catalog.Gold(c.Context)
	if err != nil {
		return fmt.Errorf("gold failed: %w", err)
	}
	fmt.Printf("Gold: %d of %d rows kept (%d not games, %d unavailable), %d keys\n",
		report.Kept, report.Input, report.NotGame, report.Unavailable, report.Keys)
	return nil
}

func embedCommand(c *cli.Context) error {
	catalog, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer catalog.Close()

	report, err := catalog.Embed(c.Context)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	fmt.Printf("Embedded %d of %d missing (%d gold records)\n", report.Embedded, report.Missing, report.Gold)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a search query is required")
	}

	catalog, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer catalog.Close()

	searcher, err := catalog.NewSearcher(search.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	results, err := searcher.Search(c.Context, query, filterFromFlags(c))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: '%s' (%d) $%0.2f [%0.3f]\n", i, hit.Game.Name, hit.Game.AppID, hit.Game.Price, hit.Distance)
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	catalog, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer catalog.Close()

	searcher, err := catalog.NewSearcher(search.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	cfg := server.DefaultConfig()
	cfg.Addr = c.String("addr")
	cfg.AllowOrigins = c.StringSlice("allow-origin")
	srv, err := server.New(cfg, searcher, catalog.Store().Games, slog.Default())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runCommand(c *cli.Context) error {
	catalog, err := openCatalog(c)
	if err != nil {
		return err
	}
	defer catalog.Close()

	report, err := catalog.RunAll(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("Registered %d new ids\n", report.NewIDs)
	printFetchReport(report.Fetch)
	fmt.Printf("Gold: %d records, embedded %d, took %s\n",
		report.Gold.Kept, report.Embed.Embedded, report.Duration.Round(time.Millisecond))
	return nil
}

func printFetchReport(report *harvest.RunReport) {
	fmt.Printf("Fetched %d ids: %d found, %d not found, %d unavailable; %d persisted, %d dropped\n",
		report.Requested, report.Found, report.NotFound, report.Unavailable, report.Persisted, report.Dropped)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
