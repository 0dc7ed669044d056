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


package badger

import (
	"log/slog"

	"github.com/poiesic/gamescout/storage"
)

// OpenStore opens the BadgerDB database at path and wires every repository
// to it. dimensions fixes the embedding width; 0 accepts any width.
func OpenStore(path string, dimensions int, logger *slog.Logger) (*storage.Store, error) {
	backend, err := OpenBackendWithLogger(path, false, logger)
	if err != nil {
		return nil, err
	}
	return newStore(backend, dimensions), nil
}

// NewMemoryStore creates an in-memory store for testing.
// Caller must close the store when done.
func NewMemoryStore(dimensions int) (*storage.Store, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newStore(backend, dimensions), nil
}

func newStore(backend *Backend, dimensions int) *storage.Store {
	return storage.NewStore(
		NewAppIDRepository(backend),
		NewGameRepository(backend),
		NewEmbeddingRepository(backend, dimensions),
		NewCheckpointRepository(backend),
		backend.Close,
	)
}
