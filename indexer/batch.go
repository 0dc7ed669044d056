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
	"log/slog"
	"time"

	"github.com/poiesic/gamescout/ai"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/storage"
)

// BatchProcessor embeds one batch of gold records and appends the vectors
// to the embedding store.
type BatchProcessor struct {
	repo           storage.EmbeddingRepository
	embedder       ai.Embedder
	maxTextLength  int
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for each provider call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.EmbeddingRepository, embedder ai.Embedder, maxTextLength, maxRetries int,
	retryBaseDelay time.Duration, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxTextLength:  maxTextLength,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
	}
}

// Process embeds games in a single provider call and stores the results.
func (bp *BatchProcessor) Process(ctx context.Context, games []*core.Game) error {
	if len(games) == 0 {
		return nil
	}

	texts := make([]string, len(games))
	for i, g := range games {
		texts[i] = SourceText(g, bp.maxTextLength)
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, bp.logger, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(games) {
		return fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, len(games), len(embeddings))
	}

	now := time.Now().UTC()
	records := make([]*core.EmbeddingRecord, len(games))
	for i, g := range games {
		records[i] = &core.EmbeddingRecord{
			AppID:     g.AppID,
			Name:      g.Name,
			Text:      texts[i],
			Vector:    embeddings[i],
			CreatedAt: now,
		}
	}

	if err := bp.repo.AddEmbeddings(ctx, records...); err != nil {
		return fmt.Errorf("failed to store embeddings: %w", err)
	}
	return nil
}
