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
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/storage"
)

// SnapshotRepository implements storage.SnapshotRepository for BadgerDB.
type SnapshotRepository struct {
	backend *Backend
	seq     *badger.Sequence
	logger  *slog.Logger
}

var _ storage.SnapshotRepository = (*SnapshotRepository)(nil)

// newSnapshotRepository creates a SnapshotRepository backed by backend.
func newSnapshotRepository(backend *Backend) (*SnapshotRepository, error) {
	seq, err := backend.GetSequence(snapshotGenSeq)
	if err != nil {
		return nil, err
	}
	return &SnapshotRepository{
		backend: backend,
		seq:     seq,
		logger:  backend.logger.With("repository", "snapshot"),
	}, nil
}

// NewSnapshotRepository creates a new snapshot repository.
//
// Returns storage.SnapshotRepository interface to enforce abstraction.
func NewSnapshotRepository(backend *Backend) (storage.SnapshotRepository, error) {
	return newSnapshotRepository(backend)
}

// Close releases the generation sequence.
func (r *SnapshotRepository) Close() error {
	if r.backend.IsClosed() {
		return nil
	}
	return r.seq.Release()
}

// LoadSnapshot reads the live generation for key.
func (r *SnapshotRepository) LoadSnapshot(ctx context.Context, key string) (*core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snapshot *core.Snapshot
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSnapshotCurrentKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		var generation uint64
		err = item.Value(func(val []byte) error {
			var ok bool
			if generation, ok = decodeGeneration(val); !ok {
				return fmt.Errorf("%w: bad generation pointer for %s", storage.ErrCorruptSnapshot, key)
			}
			return nil
		})
		if err != nil {
			return err
		}

		item, err = tx.Get(makeSnapshotKey(key, generation))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: generation %d of %s is missing", storage.ErrCorruptSnapshot, generation, key)
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			snapshot, unmarshalErr = storage.UnmarshalSnapshot(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}

	if snapshot != nil && snapshot.Key != key {
		return nil, fmt.Errorf("%w: stored key %q does not match %q", storage.ErrCorruptSnapshot, snapshot.Key, key)
	}
	return snapshot, nil
}

// SaveSnapshot writes a new generation, swaps the pointer, then removes
// the previous generation.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *core.Snapshot) error {
	if snapshot == nil || snapshot.Key == "" {
		return storage.ErrInvalidSnapshot
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	generation, err := r.seq.Next()
	if err != nil {
		return err
	}

	value := storage.MarshalSnapshot(snapshot)
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeSnapshotKey(snapshot.Key, generation), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	var previous uint64
	hadPrevious := false
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		pointer := makeSnapshotCurrentKey(snapshot.Key)
		item, err := tx.Get(pointer)
		switch {
		case err == nil:
			_ = item.Value(func(val []byte) error {
				previous, hadPrevious = decodeGeneration(val)
				return nil
			})
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := tx.Set(pointer, encodeGeneration(generation)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	if hadPrevious && previous != generation {
		err = r.backend.WithTx(func(tx *badger.Txn) error {
			if err := tx.Delete(makeSnapshotKey(snapshot.Key, previous)); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		if err != nil {
			r.logger.Warn("failed to remove previous snapshot generation", "key", snapshot.Key, "generation", previous, "err", err)
		}
	}

	r.logger.Debug("saved snapshot", "key", snapshot.Key, "generation", generation, "categories", len(snapshot.Categories))
	return nil
}
