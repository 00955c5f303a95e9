package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Vector dimensions accepted by the search index.
const (
	TextVectorDimensions  = 1536
	ImageVectorDimensions = 1024
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String returns the ID as a fixed-width hex string, the form used as a document key.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// SourceRef locates a record in the file it was read from.
type SourceRef struct {
	File string
	Line int
}

// String renders the reference as "file:line".
func (s SourceRef) String() string {
	return s.File + ":" + strconv.Itoa(s.Line)
}

// Record is one enrichable input unit, decoded from a single line of a chunk file.
// Records are never mutated by enrichment; enrichment produces a new Document.
type Record struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	// Content is the descriptive text generated upstream for the image.
	Content string `json:"content"`
	// DocumentSource is handed to the document analyzer. Defaults to ImageURL.
	DocumentSource string `json:"documentSource,omitempty"`

	Source SourceRef `json:"-"`
}

// Key returns the identifier used when reporting on this record.
// Falls back to the source location when the record has no ID.
func (r *Record) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Source.String()
}

// Document is the index-ready representation of an enriched Record.
// A vector is nil when its embedding was skipped or failed; nil vectors are
// never serialized.
type Document struct {
	ID               string    `json:"id"`
	Caption          string    `json:"caption"`
	Content          string    `json:"content"`
	OCRContent       string    `json:"ocrContent"`
	ImageURL         string    `json:"imageUrl"`
	CaptionVector    []float32 `json:"captionVector,omitempty"`
	ContentVector    []float32 `json:"contentVector,omitempty"`
	OCRContentVector []float32 `json:"ocrContentVector,omitempty"`
	ImageVector      []float32 `json:"imageVector,omitempty"`
}

// RecordFailure names a record that could not be turned into a Document.
type RecordFailure struct {
	RecordID string `json:"recordId"`
	Source   string `json:"source"`
	Cause    string `json:"cause"`
}

// EnrichmentResult is the outcome of enriching every record of one file.
// Every record appears in exactly one of Documents or Failures.
type EnrichmentResult struct {
	File         string
	TotalRecords int
	Documents    []*Document
	Failures     []RecordFailure
}

// UploadOutcome aggregates per-document acknowledgements across all upload batches.
type UploadOutcome struct {
	Attempted      int
	Batches        int
	FailedKeys     []string
	FailedMessages []string
}

// Succeeded returns the number of documents the backend accepted.
func (o *UploadOutcome) Succeeded() int {
	return o.Attempted - len(o.FailedKeys)
}

// CheckpointStatus is the processing state recorded for a chunk file.
type CheckpointStatus string

const (
	// CheckpointCompleted means the file was enriched and uploaded without error.
	CheckpointCompleted CheckpointStatus = "completed"
	// CheckpointFailed means the file task returned an error.
	CheckpointFailed CheckpointStatus = "failed"
)

// Checkpoint records the last known processing state of a chunk file.
type Checkpoint struct {
	File      string           `json:"file"`
	RunID     string           `json:"runId"`
	Status    CheckpointStatus `json:"status"`
	Records   int              `json:"records"`
	Documents int              `json:"documents"`
	Failures  int              `json:"failures"`
	Error     string           `json:"error,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// RunReport summarizes one ingestion run.
type RunReport struct {
	RunID          string    `json:"runId"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	Files          int       `json:"files"`
	SkippedFiles   int       `json:"skippedFiles"`
	FailedFiles    int       `json:"failedFiles"`
	ZeroYieldFiles []string  `json:"zeroYieldFiles,omitempty"`
	Records        int       `json:"records"`
	FailedRecords  int       `json:"failedRecords"`
	Documents      int       `json:"documents"`
	Uploaded       int       `json:"uploaded"`
	UploadFailures int       `json:"uploadFailures"`
	Errors         []string  `json:"errors,omitempty"`
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether every file completed without error.
func (r *RunReport) Succeeded() bool {
	return r.FailedFiles == 0 && len(r.Errors) == 0
}
