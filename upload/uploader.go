package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/imageindex/core"
	"github.com/poiesic/imageindex/index"
	"github.com/poiesic/imageindex/metrics"
)

// DefaultBatchSize is used when a non-positive batch size is requested.
const DefaultBatchSize = 50

var (
	// ErrBackendRequired is returned when no index backend is provided.
	ErrBackendRequired = errors.New("index backend required")

	// ErrIndexingFailed is the summary error for a run in which the index
	// rejected at least one document.
	ErrIndexingFailed = errors.New("indexing failed")
)

// IndexingFailedError summarizes rejected documents across all batches.
type IndexingFailedError struct {
	Count    int
	Messages []string
}

func (e *IndexingFailedError) Error() string {
	return fmt.Sprintf("%s for %d documents: %s", ErrIndexingFailed, e.Count, strings.Join(e.Messages, "; "))
}

func (e *IndexingFailedError) Unwrap() error {
	return ErrIndexingFailed
}

// Uploader sends documents to an index backend in bounded batches.
type Uploader struct {
	backend index.Backend
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures an Uploader.
type Option func(*Uploader) error

// WithMetrics counts batches and rejected documents.
func WithMetrics(m *metrics.Metrics) Option {
	return func(u *Uploader) error {
		u.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) error {
		if logger == nil {
			logger = slog.Default()
		}
		u.logger = logger
		return nil
	}
}

// New creates an Uploader for backend.
func New(backend index.Backend, opts ...Option) (*Uploader, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	u := &Uploader{backend: backend, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(u); err != nil {
			return nil, err
		}
	}
	u.logger = u.logger.With("component", "uploader")
	return u, nil
}

// Upload partitions docs into contiguous batches of at most batchSize, in input
// order, and submits each as one backend call. Every batch is attempted. A
// batch the backend could not acknowledge counts all of its documents as failed.
//
// A document whose key was already taken earlier in docs is not sent and
// counts as failed with core.ErrDuplicateID.
//
// The returned outcome is always non-nil. The error is an *IndexingFailedError
// when any document failed, or the context error when ctx was canceled between
// batches. A batch that has started is sent even if ctx is canceled meanwhile.
func (u *Uploader) Upload(ctx context.Context, docs []*core.Document, batchSize int) (*core.UploadOutcome, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	outcome := &core.UploadOutcome{}
	messages := map[string]struct{}{}
	seen := make(map[string]struct{}, len(docs))

	for start := 0; start < len(docs); start += batchSize {
		if err := ctx.Err(); err != nil {
			u.logger.Warn("upload canceled", "sent", outcome.Attempted, "remaining", len(docs)-start)
			return outcome, err
		}

		window := docs[start:min(start+batchSize, len(docs))]
		outcome.Batches++
		outcome.Attempted += len(window)

		batch := make([]*core.Document, 0, len(window))
		for _, d := range window {
			if _, dup := seen[d.ID]; dup {
				u.logger.Warn("duplicate document key", "key", d.ID)
				outcome.FailedKeys = append(outcome.FailedKeys, d.ID)
				messages[core.ErrDuplicateID.Error()] = struct{}{}
				continue
			}
			seen[d.ID] = struct{}{}
			batch = append(batch, d)
		}
		duplicates := len(window) - len(batch)
		if len(batch) == 0 {
			u.metrics.UploadBatch(duplicates, nil)
			continue
		}

		actions := make([]index.Action, len(batch))
		for i, d := range batch {
			actions[i] = NewAction(d)
		}

		results, err := u.backend.UploadBatch(context.WithoutCancel(ctx), actions)
		failed := 0
		if err != nil {
			u.logger.Error("batch upload failed", "batch", outcome.Batches, "size", len(batch), "err", err)
			for _, d := range batch {
				outcome.FailedKeys = append(outcome.FailedKeys, d.ID)
			}
			messages[err.Error()] = struct{}{}
			failed = len(batch)
		} else {
			failed = collect(batch, results, outcome, messages)
		}
		failed += duplicates
		u.metrics.UploadBatch(failed, err)

		u.logger.Debug("uploaded batch", "batch", outcome.Batches, "size", len(window), "failed", failed)
	}

	for m := range messages {
		outcome.FailedMessages = append(outcome.FailedMessages, m)
	}
	slices.Sort(outcome.FailedMessages)

	if len(outcome.FailedKeys) > 0 {
		return outcome, &IndexingFailedError{Count: len(outcome.FailedKeys), Messages: outcome.FailedMessages}
	}
	return outcome, nil
}

// collect records failed keys from one batch's results. Only keys of documents
// in the batch are recorded; a document with no result counts as failed.
func collect(batch []*core.Document, results []index.Result, outcome *core.UploadOutcome, messages map[string]struct{}) int {
	byKey := make(map[string]index.Result, len(results))
	for _, r := range results {
		byKey[r.Key] = r
	}

	failed := 0
	for _, d := range batch {
		r, ok := byKey[d.ID]
		switch {
		case !ok:
			outcome.FailedKeys = append(outcome.FailedKeys, d.ID)
			messages["no acknowledgement from index"] = struct{}{}
			failed++
		case !r.Succeeded:
			outcome.FailedKeys = append(outcome.FailedKeys, d.ID)
			msg := r.ErrorMessage
			if msg == "" {
				msg = fmt.Sprintf("status %d", r.StatusCode)
			}
			messages[msg] = struct{}{}
			failed++
		}
	}
	return failed
}

// NewAction prepares a document for upload: it carries the upload marker and a
// string id, and vectors that are nil are not present at all.
func NewAction(doc *core.Document) index.Action {
	a := index.Action{
		index.ActionField: index.ActionUpload,
		index.KeyField:    doc.ID,
		"caption":         doc.Caption,
		"content":         doc.Content,
		"ocrContent":      doc.OCRContent,
		"imageUrl":        doc.ImageURL,
	}
	vectors := []struct {
		name string
		vec  []float32
	}{
		{"captionVector", doc.CaptionVector},
		{"contentVector", doc.ContentVector},
		{"ocrContentVector", doc.OCRContentVector},
		{"imageVector", doc.ImageVector},
	}
	for _, v := range vectors {
		if v.vec != nil {
			a[v.name] = v.vec
		}
	}
	return a
}
