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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/imageindex/core"
	"github.com/poiesic/imageindex/storage"
)

// FailureRepository implements storage.FailureRepository for BadgerDB.
type FailureRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.FailureRepository = (*FailureRepository)(nil)

// NewFailureRepository creates a new FailureRepository.
func NewFailureRepository(backend *Backend) (*FailureRepository, error) {
	seq, err := backend.GetSequence(failureIDSeq)
	if err != nil {
		return nil, err
	}

	return &FailureRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the failure sequence.
func (r *FailureRepository) Close() error {
	return r.seq.Release()
}

// WithTransaction delegates to the backend.
func (r *FailureRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddFailures appends failures for a file to a run.
func (r *FailureRepository) AddFailures(ctx context.Context, runID, file string, failures ...core.RecordFailure) error {
	if runID == "" {
		return storage.ErrInvalidQuery
	}
	if len(failures) == 0 {
		return nil
	}

	now := time.Now().UTC()
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, failure := range failures {
			seq, err := r.seq.Next()
			if err != nil {
				return err
			}
			value, err := storage.MarshalFailure(&storage.FailureEntry{
				RunID:      runID,
				File:       file,
				Failure:    failure,
				RecordedAt: now,
			})
			if err != nil {
				return err
			}
			if err := tx.Set(makeFailureKey(runID, seq), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListFailures returns the failures recorded for a run in insertion order.
func (r *FailureRepository) ListFailures(ctx context.Context, runID string) ([]*storage.FailureEntry, error) {
	if runID == "" {
		return nil, storage.ErrInvalidQuery
	}

	var entries []*storage.FailureEntry
	err := r.backend.scan(ctx, makePartialFailureKey(runID), func(val []byte) error {
		entry, err := storage.UnmarshalFailure(val)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}
