package storage

import (
	"testing"
	"time"

	"github.com/poiesic/imageindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointSerialization(t *testing.T) {
	cp := &core.Checkpoint{
		File:      "/tmp/data_chunk_1.txt",
		RunID:     "run-1",
		Status:    core.CheckpointFailed,
		Records:   100,
		Documents: 97,
		Failures:  3,
		Error:     "indexing failed",
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	data, err := MarshalCheckpoint(cp)
	require.NoError(t, err)

	decoded, err := UnmarshalCheckpoint(data)
	require.NoError(t, err)
	assert.Equal(t, cp.File, decoded.File)
	assert.Equal(t, cp.Status, decoded.Status)
	assert.Equal(t, cp.Documents, decoded.Documents)
	assert.True(t, cp.UpdatedAt.Equal(decoded.UpdatedAt))
}

func TestFailureSerialization(t *testing.T) {
	entry := &FailureEntry{
		RunID:   "run-1",
		File:    "a.txt",
		Failure: core.RecordFailure{RecordID: "r1", Source: "a.txt:4", Cause: "caption: boom"},
	}

	data, err := MarshalFailure(entry)
	require.NoError(t, err)

	decoded, err := UnmarshalFailure(data)
	require.NoError(t, err)
	assert.Equal(t, entry.Failure, decoded.Failure)
	assert.Equal(t, "a.txt", decoded.File)
}

func TestRunReportSerialization(t *testing.T) {
	report := &core.RunReport{RunID: "run-1", Files: 3, ZeroYieldFiles: []string{"b.txt"}}

	data, err := MarshalRunReport(report)
	require.NoError(t, err)

	decoded, err := UnmarshalRunReport(data)
	require.NoError(t, err)
	assert.Equal(t, report.ZeroYieldFiles, decoded.ZeroYieldFiles)
	assert.Equal(t, 3, decoded.Files)
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := UnmarshalCheckpoint([]byte("{not json"))
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalFailure(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
