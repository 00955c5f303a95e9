package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/imageindex/core"
	"github.com/poiesic/imageindex/storage"
)

// CheckpointRepository implements storage.CheckpointRepository for BadgerDB.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{
		backend: backend,
	}
}

// WithTransaction delegates to the backend.
func (r *CheckpointRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Close is a no-op; the backend is owned by the caller.
func (r *CheckpointRepository) Close() error {
	return nil
}

// SaveCheckpoint stores the processing state of a file.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if checkpoint == nil || checkpoint.File == "" {
		return storage.ErrInvalidQuery
	}
	if checkpoint.UpdatedAt.IsZero() {
		checkpoint.UpdatedAt = time.Now().UTC()
	}
	value, err := storage.MarshalCheckpoint(checkpoint)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCheckpointKey(checkpoint.File), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetCheckpoint loads the processing state of a file.
func (r *CheckpointRepository) GetCheckpoint(ctx context.Context, file string) (*core.Checkpoint, error) {
	var checkpoint *core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(file))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			checkpoint, unmarshalErr = storage.UnmarshalCheckpoint(val)
			return unmarshalErr
		})
	}, false)

	return checkpoint, err
}

// ListCheckpoints returns every checkpoint ordered by file name.
func (r *CheckpointRepository) ListCheckpoints(ctx context.Context) ([]*core.Checkpoint, error) {
	var checkpoints []*core.Checkpoint
	err := r.backend.scan(ctx, []byte(checkpointPrefix+":"), func(val []byte) error {
		checkpoint, err := storage.UnmarshalCheckpoint(val)
		if err != nil {
			return err
		}
		checkpoints = append(checkpoints, checkpoint)
		return nil
	})
	return checkpoints, err
}

// DeleteCheckpoints removes the state of the given files.
func (r *CheckpointRepository) DeleteCheckpoints(ctx context.Context, files ...string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, file := range files {
			if err := tx.Delete(makeCheckpointKey(file)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
