package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/poiesic/imageindex/core"
)

// FailureEntry is a record failure as stored in the ledger.
type FailureEntry struct {
	RunID      string             `json:"runId"`
	File       string             `json:"file"`
	Failure    core.RecordFailure `json:"failure"`
	RecordedAt time.Time          `json:"recordedAt"`
}

func marshal(kind string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSerializationFailed, kind, err)
	}
	return data, nil
}

func unmarshal[T any](kind string, data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSerializationFailed, kind, err)
	}
	return &v, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) ([]byte, error) {
	return marshal("checkpoint", checkpoint)
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	return unmarshal[core.Checkpoint]("checkpoint", data)
}

// MarshalFailure serializes a FailureEntry to bytes.
func MarshalFailure(entry *FailureEntry) ([]byte, error) {
	return marshal("failure", entry)
}

// UnmarshalFailure deserializes a FailureEntry from bytes.
func UnmarshalFailure(data []byte) (*FailureEntry, error) {
	return unmarshal[FailureEntry]("failure", data)
}

// MarshalRunReport serializes a RunReport to bytes.
func MarshalRunReport(report *core.RunReport) ([]byte, error) {
	return marshal("run report", report)
}

// UnmarshalRunReport deserializes a RunReport from bytes.
func UnmarshalRunReport(data []byte) (*core.RunReport, error) {
	return unmarshal[core.RunReport]("run report", data)
}
