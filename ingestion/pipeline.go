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
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/imageindex/chunker"
	"github.com/poiesic/imageindex/core"
	"github.com/poiesic/imageindex/metrics"
	"github.com/poiesic/imageindex/storage"
	"github.com/poiesic/imageindex/upload"
)

// File statuses reported to metrics.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusZeroYield = "zero_yield"
	statusSkipped   = "skipped"
)

// FileEnricher turns a chunk file into documents.
type FileEnricher interface {
	EnrichFile(ctx context.Context, path string) (*core.EnrichmentResult, error)
}

// DocumentUploader sends documents to the search index.
type DocumentUploader interface {
	Upload(ctx context.Context, docs []*core.Document, batchSize int) (*core.UploadOutcome, error)
}

// FileReport is the outcome of processing one file.
type FileReport struct {
	File         string
	Skipped      bool
	ZeroYield    bool
	Records      int
	Documents    int
	Failures     []core.RecordFailure
	Uploaded     int
	UploadFailed int
	Err          error
}

// Pipeline processes chunk files end to end.
type Pipeline struct {
	enricher     FileEnricher
	uploader     DocumentUploader
	ledger       storage.Ledger
	metrics      *metrics.Metrics
	progress     io.Writer
	batchSize    int
	maxWorkers   int
	resume       bool
	removeChunks bool
	runID        string
	logger       *slog.Logger
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline) error

// WithLedger records checkpoints, record failures and run reports.
func WithLedger(ledger storage.Ledger) Option {
	return func(p *Pipeline) error {
		p.ledger = ledger
		return nil
	}
}

// WithBatchSize sets the upload batch size.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size <= 0 {
			size = upload.DefaultBatchSize
		}
		p.batchSize = size
		return nil
	}
}

// WithMaxWorkers sets how many files are processed at once.
func WithMaxWorkers(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = runtime.NumCPU()
		}
		p.maxWorkers = n
		return nil
	}
}

// WithResume skips files whose checkpoint says they completed. Requires a ledger.
func WithResume(resume bool) Option {
	return func(p *Pipeline) error {
		p.resume = resume
		return nil
	}
}

// WithRemoveChunks deletes each file that completed once the run is over.
func WithRemoveChunks(remove bool) Option {
	return func(p *Pipeline) error {
		p.removeChunks = remove
		return nil
	}
}

// WithProgress prints file progress to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithRunID fixes the run id instead of generating one per run.
func WithRunID(id string) Option {
	return func(p *Pipeline) error {
		p.runID = id
		return nil
	}
}

// WithMetrics counts processed files.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) error {
		p.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline from an enricher and an uploader.
func NewPipeline(enricher FileEnricher, uploader DocumentUploader, opts ...Option) (*Pipeline, error) {
	if enricher == nil {
		return nil, ErrEnricherRequired
	}
	if uploader == nil {
		return nil, ErrUploaderRequired
	}

	p := &Pipeline{
		enricher:   enricher,
		uploader:   uploader,
		batchSize:  upload.DefaultBatchSize,
		maxWorkers: runtime.NumCPU(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.resume && p.ledger == nil {
		return nil, fmt.Errorf("resume: %w", ErrLedgerRequired)
	}
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// Ingest splits every input into chunks of linesPerChunk lines under tempDir, then
// processes all chunks as one run. An input that cannot be split counts as a
// failed file of the run; the chunks it produced before failing and the chunks of
// every other input are still processed.
func (p *Pipeline) Ingest(ctx context.Context, inputs []string, tempDir string, linesPerChunk int) (*core.RunReport, error) {
	var (
		chunks    []string
		splitErrs []error
	)
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			splitErrs = append(splitErrs, err)
			break
		}
		paths, err := chunker.Split(ctx, input, tempDir, linesPerChunk)
		chunks = append(chunks, paths...)
		if err != nil {
			p.logger.Error("failed to split input", "file", input, "chunks", len(paths), "err", err)
			splitErrs = append(splitErrs, &FileError{File: input, Err: err})
			continue
		}
		p.logger.Info("split input", "file", input, "chunks", len(paths))
	}
	return p.run(ctx, chunks, splitErrs)
}

// ProcessDirectory processes every regular file in dir as one run.
func (p *Pipeline) ProcessDirectory(ctx context.Context, dir string) (*core.RunReport, error) {
	paths, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	return p.ProcessPaths(ctx, paths)
}

// ProcessPaths processes the given files as one run. The report is always
// returned; the error joins the failure of every file.
func (p *Pipeline) ProcessPaths(ctx context.Context, paths []string) (*core.RunReport, error) {
	return p.run(ctx, paths, nil)
}

// run processes paths as one run. Failures that happened before processing, one
// per input, are counted as failed files and joined to the result.
func (p *Pipeline) run(ctx context.Context, paths []string, earlier []error) (*core.RunReport, error) {
	report := &core.RunReport{
		RunID:     p.newRunID(),
		StartedAt: time.Now().UTC(),
		Files:     len(paths),
	}
	for _, err := range earlier {
		var fe *FileError
		if errors.As(err, &fe) {
			report.Files++
			report.FailedFiles++
		}
	}
	logger := p.logger.With("run", report.RunID)
	logger.Info("starting run", "files", len(paths), "workers", p.maxWorkers)

	tracker := NewProgressTracker(p.progress, len(paths))
	tracker.Start()

	var (
		mu        sync.Mutex
		completed []string
	)
	task := func(ctx context.Context, path string) error {
		fr := p.processFile(ctx, report.RunID, path)
		tracker.FileDone(fr.Records, fr.Err != nil)

		mu.Lock()
		defer mu.Unlock()
		accumulate(report, fr)
		if fr.Err == nil && !fr.Skipped {
			completed = append(completed, path)
		}
		return fr.Err
	}

	errs := earlier
	if err := ProcessFiles(ctx, paths, p.maxWorkers, task); err != nil {
		errs = append(errs, err)
	}
	tracker.Finish()

	slices.Sort(report.ZeroYieldFiles)
	for _, err := range errs {
		report.Errors = append(report.Errors, errorMessages(err)...)
	}

	if p.removeChunks && len(completed) > 0 {
		if err := chunker.Cleanup(completed); err != nil {
			logger.Warn("failed to remove chunks", "err", err)
		}
	}

	report.FinishedAt = time.Now().UTC()
	if p.ledger != nil {
		if err := p.ledger.SaveRun(context.WithoutCancel(ctx), report); err != nil {
			logger.Error("failed to save run report", "err", err)
		}
	}

	logger.Info("run finished",
		"files", report.Files,
		"skipped", report.SkippedFiles,
		"failedFiles", report.FailedFiles,
		"records", report.Records,
		"failedRecords", report.FailedRecords,
		"documents", report.Documents,
		"uploaded", report.Uploaded,
		"uploadFailures", report.UploadFailures,
		"duration", report.Duration())

	return report, errors.Join(errs...)
}

// ProcessFile processes a single file as its own run.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*FileReport, error) {
	fr := p.processFile(ctx, p.newRunID(), path)
	return fr, fr.Err
}

func (p *Pipeline) processFile(ctx context.Context, runID, path string) *FileReport {
	logger := p.logger.With("run", runID, "file", path)

	if p.resume {
		cp, err := p.ledger.GetCheckpoint(ctx, path)
		switch {
		case err == nil && cp.Status == core.CheckpointCompleted:
			logger.Info("skipping completed file", "completedBy", cp.RunID)
			p.metrics.File(statusSkipped)
			return &FileReport{File: path, Skipped: true}
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			logger.Warn("failed to read checkpoint", "err", err)
		}
	}

	fr := &FileReport{File: path}
	p.enrichAndUpload(ctx, fr, logger)

	switch {
	case fr.Err == nil:
		p.metrics.File(statusCompleted)
	case fr.ZeroYield:
		p.metrics.File(statusZeroYield)
	default:
		p.metrics.File(statusFailed)
	}

	p.record(context.WithoutCancel(ctx), runID, fr, logger)
	return fr
}

func (p *Pipeline) enrichAndUpload(ctx context.Context, fr *FileReport, logger *slog.Logger) {
	result, err := p.enricher.EnrichFile(ctx, fr.File)
	if err != nil {
		logger.Error("failed to read file", "err", err)
		fr.Err = err
		return
	}

	fr.Records = result.TotalRecords
	fr.Documents = len(result.Documents)
	fr.Failures = result.Failures
	logger.Debug("enriched file", "records", fr.Records, "documents", fr.Documents, "failures", len(fr.Failures))

	if fr.Documents == 0 {
		fr.ZeroYield = true
		fr.Err = fmt.Errorf("%w: %d records, %d failed", core.ErrNoValidDocuments, fr.Records, len(fr.Failures))
		logger.Error("file produced no documents", "records", fr.Records)
		return
	}

	outcome, err := p.uploader.Upload(ctx, result.Documents, p.batchSize)
	if outcome != nil {
		fr.Uploaded = outcome.Succeeded()
		fr.UploadFailed = len(outcome.FailedKeys)
	}
	if err != nil {
		logger.Error("upload failed", "uploaded", fr.Uploaded, "failed", fr.UploadFailed, "err", err)
		fr.Err = err
		return
	}
	logger.Info("processed file", "records", fr.Records, "documents", fr.Documents, "uploaded", fr.Uploaded)
}

// record writes the checkpoint and the record failures of a file. Ledger errors
// are logged and do not fail the file.
func (p *Pipeline) record(ctx context.Context, runID string, fr *FileReport, logger *slog.Logger) {
	if p.ledger == nil {
		return
	}

	if err := p.ledger.AddFailures(ctx, runID, fr.File, fr.Failures...); err != nil {
		logger.Error("failed to record failures", "err", err)
	}

	cp := &core.Checkpoint{
		File:      fr.File,
		RunID:     runID,
		Status:    core.CheckpointCompleted,
		Records:   fr.Records,
		Documents: fr.Documents,
		Failures:  len(fr.Failures),
	}
	if fr.Err != nil {
		cp.Status = core.CheckpointFailed
		cp.Error = fr.Err.Error()
	}
	if err := p.ledger.SaveCheckpoint(ctx, cp); err != nil {
		logger.Error("failed to save checkpoint", "err", err)
	}
}

func (p *Pipeline) newRunID() string {
	if p.runID != "" {
		return p.runID
	}
	return uuid.NewString()
}

func accumulate(report *core.RunReport, fr *FileReport) {
	if fr.Skipped {
		report.SkippedFiles++
		return
	}
	report.Records += fr.Records
	report.FailedRecords += len(fr.Failures)
	report.Documents += fr.Documents
	report.Uploaded += fr.Uploaded
	report.UploadFailures += fr.UploadFailed
	if fr.ZeroYield {
		report.ZeroYieldFiles = append(report.ZeroYieldFiles, fr.File)
	}
	if fr.Err != nil {
		report.FailedFiles++
	}
}

// errorMessages splits a joined error into one message per member.
func errorMessages(err error) []string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}
	var msgs []string
	for _, e := range joined.Unwrap() {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
