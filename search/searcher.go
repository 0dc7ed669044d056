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


package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/gamescout/ai"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/storage"
)

// DefaultLimit is the number of results returned when the filter sets none.
const DefaultLimit = 20

// Searcher ranks gold records by vector distance to a free-text query,
// restricted to records passing structured filters.
type Searcher struct {
	embeddings storage.EmbeddingRepository
	embedder   ai.Embedder
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(embeddings storage.EmbeddingRepository, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		embeddings: embeddings,
		embedder:   provider.Embedder(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns gold records nearest to query that pass filter, closest
// first. Empty category or genre lists place no restriction; a zero
// PriceMax places no upper bound.
func (s *Searcher) Search(ctx context.Context, query string, filter core.SearchFilter) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, filter, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, filter core.SearchFilter, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if err := core.ValidateSearchFilter(&filter); err != nil {
		return nil, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	monitor.Start(query, filter)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(len(embedding))

	results, err := s.embeddings.SearchNearest(ctx, embedding, filter, limit)
	if err != nil {
		s.logger.Error("error ranking nearest records", "err", err)
		return nil, err
	}
	if results == nil {
		results = []*core.SearchResult{}
	}
	for _, r := range results {
		monitor.Hit(r)
	}
	monitor.Finish(results)

	return results, nil
}
