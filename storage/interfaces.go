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
package storage

import (
	"context"

	"github.com/poiesic/imageindex/core"
)

// Repository is the base interface every ledger repository shares.
type Repository interface {
	// WithTransaction executes fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// CheckpointRepository tracks the processing state of chunk files.
type CheckpointRepository interface {
	Repository

	// SaveCheckpoint stores the state of a file, replacing any previous state.
	// Sets UpdatedAt if it is zero.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// GetCheckpoint returns the state of a file.
	// Returns ErrNotFound if the file has never been recorded.
	GetCheckpoint(ctx context.Context, file string) (*core.Checkpoint, error)

	// ListCheckpoints returns every stored checkpoint ordered by file name.
	ListCheckpoints(ctx context.Context) ([]*core.Checkpoint, error)

	// DeleteCheckpoints removes the state of the given files. Missing files are ignored.
	DeleteCheckpoints(ctx context.Context, files ...string) error
}

// FailureRepository persists record failures per run.
type FailureRepository interface {
	Repository

	// AddFailures appends failures for a file to a run.
	AddFailures(ctx context.Context, runID, file string, failures ...core.RecordFailure) error

	// ListFailures returns the failures recorded for a run in insertion order.
	ListFailures(ctx context.Context, runID string) ([]*FailureEntry, error)
}

// RunRepository stores run reports.
type RunRepository interface {
	Repository

	// SaveRun stores a report, replacing any report with the same RunID.
	SaveRun(ctx context.Context, report *core.RunReport) error

	// GetRun returns a report. Returns ErrNotFound if the run is unknown.
	GetRun(ctx context.Context, runID string) (*core.RunReport, error)

	// ListRuns returns every stored report, most recent first.
	ListRuns(ctx context.Context) ([]*core.RunReport, error)
}

// Ledger combines the repositories used by an ingestion run.
type Ledger interface {
	CheckpointRepository
	FailureRepository
	RunRepository
}
