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


package indexer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/gamescout/ai"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/progress"
	"github.com/poiesic/gamescout/storage"
)

// CheckpointStage names the indexer's checkpoint.
const CheckpointStage = "embed"

// Config holds configuration for an indexing run.
type Config struct {
	// BatchSize is the number of texts sent per provider call
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each provider call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// MaxTextLength caps the embedded source text, in characters
	MaxTextLength int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: DefaultBatchSize,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		MaxTextLength:  DefaultMaxTextLength,
	}
}

// Report summarizes one indexing run.
type Report struct {
	Gold     int
	Missing  int
	Embedded int
}

// Indexer embeds every gold record that has no vector yet. Existing
// vectors are never recomputed.
type Indexer struct {
	games       GameSource
	embeddings  storage.EmbeddingRepository
	checkpoints storage.CheckpointRepository
	embedder    ai.Embedder
	config      *Config
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithProgress sets where progress lines are written.
func WithProgress(w io.Writer) Option {
	return func(ix *Indexer) {
		ix.progress = w
	}
}

// WithCheckpoints records each completed run.
func WithCheckpoints(repo storage.CheckpointRepository) Option {
	return func(ix *Indexer) {
		ix.checkpoints = repo
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// NewIndexer creates a new indexer. A nil config means DefaultConfig().
func NewIndexer(games GameSource, embeddings storage.EmbeddingRepository, embedder ai.Embedder,
	config *Config, opts ...Option) (*Indexer, error) {
	if games == nil {
		return nil, ErrGamesRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingsRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	ix := &Indexer{
		games:      games,
		embeddings: embeddings,
		embedder:   embedder,
		config:     config,
		progress:   io.Discard,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.logger = ix.logger.With("component", "indexer")
	return ix, nil
}

// Run embeds the gold records missing from the embedding store.
func (ix *Indexer) Run(ctx context.Context) (*Report, error) {
	ids, err := ix.games.ListGameIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list gold records: %w", err)
	}
	missing, err := ix.embeddings.MissingEmbeddings(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to diff embeddings: %w", err)
	}

	report := &Report{Gold: len(ids), Missing: len(missing)}
	if len(missing) == 0 {
		ix.logger.Info("embeddings up to date", "gold", len(ids))
		return report, ix.checkpoint(ctx, 0)
	}

	ix.logger.Info("starting embedding run", "gold", len(ids), "missing", len(missing), "batch_size", ix.config.BatchSize)

	tracker := progress.NewTracker(ix.progress, "Embedding", len(missing), ix.config.ReportInterval)
	tracker.Start()

	processor := NewBatchProcessor(ix.embeddings, ix.embedder, ix.config.MaxTextLength,
		ix.config.MaxRetries, ix.config.RetryDelay, ix.logger)
	iterator := NewGameIterator(ix.games, missing, ix.config.BatchSize)

	err = iterator.ForEach(ctx, func(games []*core.Game) error {
		if err := processor.Process(ctx, games); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		report.Embedded += len(games)
		tracker.Increment(len(games))
		return nil
	})
	if err != nil {
		return report, err
	}
	tracker.Finish()

	ix.logger.Info("embedding run complete", "embedded", report.Embedded, "elapsed", tracker.Elapsed().Round(time.Millisecond))
	return report, ix.checkpoint(ctx, report.Embedded)
}

func (ix *Indexer) checkpoint(ctx context.Context, processed int) error {
	if ix.checkpoints == nil {
		return nil
	}
	return ix.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Stage: CheckpointStage, Processed: processed})
}
