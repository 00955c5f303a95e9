package badger

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/imageindex/core"
	"github.com/poiesic/imageindex/storage"
)

// RunRepository implements storage.RunRepository for BadgerDB.
type RunRepository struct {
	backend *Backend
}

var _ storage.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository.
func NewRunRepository(backend *Backend) *RunRepository {
	return &RunRepository{backend: backend}
}

// Close is a no-op; the backend is owned by the caller.
func (r *RunRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *RunRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SaveRun stores a run report.
func (r *RunRepository) SaveRun(ctx context.Context, report *core.RunReport) error {
	if report == nil || report.RunID == "" {
		return storage.ErrInvalidQuery
	}
	value, err := storage.MarshalRunReport(report)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeRunKey(report.RunID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetRun loads a run report.
func (r *RunRepository) GetRun(ctx context.Context, runID string) (*core.RunReport, error) {
	var report *core.RunReport
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRunKey(runID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			report, unmarshalErr = storage.UnmarshalRunReport(val)
			return unmarshalErr
		})
	}, false)
	return report, err
}

// ListRuns returns every run report, most recent first.
func (r *RunRepository) ListRuns(ctx context.Context) ([]*core.RunReport, error) {
	var reports []*core.RunReport
	err := r.backend.scan(ctx, []byte(runPrefix+":"), func(val []byte) error {
		report, err := storage.UnmarshalRunReport(val)
		if err != nil {
			return err
		}
		reports = append(reports, report)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(reports, func(a, b *core.RunReport) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return reports, nil
}
