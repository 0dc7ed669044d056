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
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/storage"
)

var errEmptyStage = errors.New("checkpoint stage is required")

// CheckpointRepository implements storage.CheckpointRepository for BadgerDB.
// Each stage owns one key that is overwritten on every save.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{backend: backend}
}

// SaveCheckpoint stamps UpdatedAt and overwrites the stage's checkpoint.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if checkpoint.Stage == "" {
		return errEmptyStage
	}
	checkpoint.UpdatedAt = time.Now().UTC()
	value, err := storage.MarshalCheckpoint(checkpoint)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCheckpointKey(checkpoint.Stage), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadCheckpoint returns nil, nil for a stage that never completed.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, stage string) (*core.Checkpoint, error) {
	var checkpoint *core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		checkpoint, err = readCheckpoint(tx, stage)
		return err
	}, false)
	return checkpoint, err
}

func readCheckpoint(tx *badger.Txn, stage string) (*core.Checkpoint, error) {
	item, err := tx.Get(makeCheckpointKey(stage))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var checkpoint *core.Checkpoint
	err = item.Value(func(val []byte) error {
		var decodeErr error
		checkpoint, decodeErr = storage.UnmarshalCheckpoint(val)
		return decodeErr
	})
	return checkpoint, err
}
