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


// Package storage provides the storage abstraction layer for gamescout.
//
// Repository interfaces decouple the pipeline stages from persistence. Two
// backends implement them: an embedded BadgerDB store (storage/badger) that
// ranks vectors by exact scan, and PostgreSQL with pgvector
// (storage/postgres) that ranks through an HNSW index.
//
// # Repositories
//
//   - AppIDRepository: identifiers reported by the catalog listing
//   - GameRepository: the gold dataset, plus distinct category and genre labels
//   - EmbeddingRepository: one vector per gold record and hybrid nearest-neighbor search
//   - CheckpointRepository: last completed run of each pipeline stage
//
// A Store bundles the four for one backend and closes them together.
//
// # Usage
//
//	store, err := badger.OpenStore("/path/to/db", 1536, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	results, err := store.Embeddings.SearchNearest(ctx, vector, core.SearchFilter{Genres: []string{"Action"}}, 20)
//
// Tests use an in-memory store:
//
//	store, err := badger.NewMemoryStore(8)
//
// Implementations are safe for concurrent use. Gold loads replace the whole
// table; embeddings are append-only, so a record is never embedded twice.
package storage
