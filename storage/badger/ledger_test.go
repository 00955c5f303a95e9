package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/imageindex/core"
	"github.com/poiesic/imageindex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := NewMemoryLedger()
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func failureFor(id string) core.RecordFailure {
	return core.RecordFailure{RecordID: id, Source: "a.txt:1", Cause: "caption: boom"}
}

func TestCheckpoints(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.GetCheckpoint(ctx, "missing.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	for _, file := range []string{"b.txt", "a.txt"} {
		require.NoError(t, ledger.SaveCheckpoint(ctx, &core.Checkpoint{
			File:   file,
			RunID:  "run-1",
			Status: core.CheckpointCompleted,
		}))
	}

	cp, err := ledger.GetCheckpoint(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, core.CheckpointCompleted, cp.Status)
	assert.False(t, cp.UpdatedAt.IsZero())

	// Overwrite
	require.NoError(t, ledger.SaveCheckpoint(ctx, &core.Checkpoint{
		File:   "a.txt",
		RunID:  "run-2",
		Status: core.CheckpointFailed,
		Error:  "boom",
	}))
	cp, err = ledger.GetCheckpoint(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, core.CheckpointFailed, cp.Status)
	assert.Equal(t, "run-2", cp.RunID)

	all, err := ledger.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a.txt", all[0].File)
	assert.Equal(t, "b.txt", all[1].File)

	require.NoError(t, ledger.DeleteCheckpoints(ctx, "a.txt", "never-saved.txt"))
	all, err = ledger.ListCheckpoints(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveCheckpoint_Invalid(t *testing.T) {
	ledger := newTestLedger(t)
	err := ledger.SaveCheckpoint(context.Background(), &core.Checkpoint{})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestFailures_OrderedPerRun(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	for i := range 12 {
		require.NoError(t, ledger.AddFailures(ctx, "run-1", "a.txt", failureFor(fmt.Sprintf("r%d", i))))
	}
	require.NoError(t, ledger.AddFailures(ctx, "run-2", "b.txt", failureFor("other")))
	require.NoError(t, ledger.AddFailures(ctx, "run-2", "b.txt"))

	entries, err := ledger.ListFailures(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 12)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("r%d", i), e.Failure.RecordID)
		assert.Equal(t, "run-1", e.RunID)
		assert.Equal(t, "a.txt", e.File)
	}

	entries, err = ledger.ListFailures(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "other", entries[0].Failure.RecordID)

	_, err = ledger.ListFailures(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestFailures_RunIDPrefixIsolation(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.AddFailures(ctx, "run", "a.txt", failureFor("r1")))
	require.NoError(t, ledger.AddFailures(ctx, "run-long", "a.txt", failureFor("r2")))

	entries, err := ledger.ListFailures(ctx, "run")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].Failure.RecordID)
}

func TestRuns(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.SaveRun(ctx, &core.RunReport{RunID: "old", StartedAt: base}))
	require.NoError(t, ledger.SaveRun(ctx, &core.RunReport{RunID: "new", StartedAt: base.Add(time.Hour), Files: 4}))

	report, err := ledger.GetRun(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, 4, report.Files)

	_, err = ledger.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	runs, err := ledger.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].RunID)
	assert.Equal(t, "old", runs[1].RunID)

	assert.ErrorIs(t, ledger.SaveRun(ctx, &core.RunReport{}), storage.ErrInvalidQuery)
}

func TestOpenLedger_Persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	ledger, err := OpenLedger(dir, nil)
	require.NoError(t, err)
	require.NoError(t, ledger.SaveCheckpoint(ctx, &core.Checkpoint{File: "a.txt", Status: core.CheckpointCompleted}))
	require.NoError(t, ledger.Close())

	ledger, err = OpenLedger(dir, nil)
	require.NoError(t, err)
	defer ledger.Close()

	cp, err := ledger.GetCheckpoint(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, core.CheckpointCompleted, cp.Status)
}

func TestLedgerClose_Twice(t *testing.T) {
	ledger, err := NewMemoryLedger()
	require.NoError(t, err)

	require.NoError(t, ledger.Close())
	assert.ErrorIs(t, ledger.Close(), storage.ErrStorageClosed)
}

func TestWithTransaction(t *testing.T) {
	ledger := newTestLedger(t)

	called := false
	err := ledger.WithTransaction(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := fmt.Errorf("boom")
	err = ledger.WithTransaction(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
