package badger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/imageindex/storage"
)

// Ledger implements storage.Ledger on a single BadgerDB instance.
type Ledger struct {
	*CheckpointRepository
	*FailureRepository
	*RunRepository
	backend *Backend
}

var _ storage.Ledger = (*Ledger)(nil)

// OpenLedger opens or creates a ledger in the directory at path.
func OpenLedger(path string, logger *slog.Logger) (*Ledger, error) {
	backend, err := OpenBackend(path, false, logger)
	if err != nil {
		return nil, err
	}
	return newLedger(backend)
}

func newLedger(backend *Backend) (*Ledger, error) {
	failures, err := NewFailureRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Ledger{
		CheckpointRepository: NewCheckpointRepository(backend),
		FailureRepository:    failures,
		RunRepository:        NewRunRepository(backend),
		backend:              backend,
	}, nil
}

// WithTransaction delegates to the backend.
func (l *Ledger) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return l.backend.WithTransaction(ctx, fn)
}

// Close releases the repositories and closes the backend.
func (l *Ledger) Close() error {
	if l.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return errors.Join(
		l.CheckpointRepository.Close(),
		l.FailureRepository.Close(),
		l.RunRepository.Close(),
		l.backend.Close(),
	)
}
