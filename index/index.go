package index

import (
	"context"
	"errors"
	"fmt"
)

// Upload actions understood by backends.
const (
	ActionField  = "@search.action"
	ActionUpload = "upload"
	KeyField     = "id"
)

var (
	// ErrIndexNotFound is returned when writing to an index that was never created.
	ErrIndexNotFound = errors.New("index not found")

	// ErrSchemaRequired is returned when EnsureIndex is called without a schema.
	ErrSchemaRequired = errors.New("index schema is required")

	// ErrInvalidAction is returned for upload actions that cannot be indexed.
	ErrInvalidAction = errors.New("invalid index action")
)

// Action is one document prepared for upload: its serialized fields plus the
// ActionField marker. Absent fields are not present in the map.
type Action map[string]any

// Key returns the document key, or "" when it is missing or not a string.
func (a Action) Key() string {
	k, _ := a[KeyField].(string)
	return k
}

// Result is the backend acknowledgement for one document of a batch.
type Result struct {
	Key          string
	Succeeded    bool
	ErrorMessage string
	StatusCode   int
}

// Stats summarizes an index.
type Stats struct {
	DocumentCount uint64
	StorageSize   uint64
}

// Backend is a search index that accepts document batches.
// Implementations must be thread-safe for concurrent use.
type Backend interface {
	// UploadBatch submits actions as a single request and returns one Result per
	// action. A non-nil error means the batch as a whole was not acknowledged.
	UploadBatch(ctx context.Context, actions []Action) ([]Result, error)

	// EnsureIndex creates the index described by schema if it does not exist.
	// An existing index is left unchanged.
	EnsureIndex(ctx context.Context, schema *Schema) error

	// Stats reports the document count of the index.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases resources held by the backend.
	Close() error
}

// ValidateAction checks an action against schema: the key must be a non-empty
// string, and vector fields must have the declared dimensions.
func ValidateAction(schema *Schema, a Action) error {
	if a.Key() == "" {
		return fmt.Errorf("%w: missing string %q", ErrInvalidAction, KeyField)
	}
	for _, f := range schema.Fields {
		if f.Kind != KindVector {
			continue
		}
		v, ok := a[f.Name]
		if !ok {
			continue
		}
		vec, ok := v.([]float32)
		if !ok {
			return fmt.Errorf("%w: %s is %T, want []float32", ErrInvalidAction, f.Name, v)
		}
		if len(vec) != f.Dimensions {
			return fmt.Errorf("%w: %s has %d dimensions, want %d", ErrInvalidAction, f.Name, len(vec), f.Dimensions)
		}
	}
	return nil
}
