package bleve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/mapping"

	"github.com/poiesic/imageindex/index"
)

// Backend is a local full-text index implementing index.Backend.
// Text fields are analyzed with the standard analyzer, the image URL is stored
// as a keyword and vectors are checked against the schema but not indexed.
type Backend struct {
	path   string
	mu     sync.RWMutex
	index  bleve.Index
	schema *index.Schema
	logger *slog.Logger
}

var _ index.Backend = (*Backend)(nil)

// Option is a functional option for configuring a Backend.
type Option func(*Backend) error

// WithSchema sets the schema used to validate uploads to an index that
// already exists on disk.
func WithSchema(schema *index.Schema) Option {
	return func(b *Backend) error {
		if err := schema.Validate(); err != nil {
			return err
		}
		b.schema = schema
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// Open returns a backend for the index at path. An existing index is opened
// immediately; otherwise the index is created by EnsureIndex. An empty path
// keeps the index in memory.
func Open(path string, opts ...Option) (*Backend, error) {
	b := &Backend{
		path:   path,
		schema: index.DefaultSchema("images"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "bleve-index", "path", path)

	if path == "" {
		return b, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return b, nil
		}
		return nil, err
	}

	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bleve index %s: %w", path, err)
	}
	b.index = idx
	b.logger.Debug("opened existing index")
	return b, nil
}

// EnsureIndex creates the index from schema unless it is already open.
func (b *Backend) EnsureIndex(ctx context.Context, schema *index.Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.index != nil {
		b.logger.Debug("index already exists", "name", schema.Name)
		return nil
	}

	m := buildMapping(schema)
	var (
		idx bleve.Index
		err error
	)
	if b.path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		idx, err = bleve.New(b.path, m)
	}
	if err != nil {
		return fmt.Errorf("create bleve index: %w", err)
	}

	b.index = idx
	b.schema = schema
	b.logger.Info("created index", "name", schema.Name)
	return nil
}

// UploadBatch validates every action, then indexes the valid ones in a single
// bleve batch. Invalid actions fail individually; a failed batch fails every
// action it contained.
func (b *Backend) UploadBatch(ctx context.Context, actions []index.Action) ([]index.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.index == nil {
		return nil, index.ErrIndexNotFound
	}

	results := make([]index.Result, len(actions))
	batch := b.index.NewBatch()
	pending := make([]int, 0, len(actions))

	for i, a := range actions {
		results[i].Key = a.Key()
		if err := index.ValidateAction(b.schema, a); err != nil {
			results[i].ErrorMessage = err.Error()
			results[i].StatusCode = 400
			continue
		}
		if err := batch.Index(a.Key(), fields(a)); err != nil {
			results[i].ErrorMessage = err.Error()
			results[i].StatusCode = 400
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		return results, nil
	}

	if err := b.index.Batch(batch); err != nil {
		b.logger.Warn("batch failed", "size", len(pending), "err", err)
		for _, i := range pending {
			results[i].ErrorMessage = err.Error()
			results[i].StatusCode = 500
		}
		return results, nil
	}

	for _, i := range pending {
		results[i].Succeeded = true
		results[i].StatusCode = 201
	}
	return results, nil
}

// Stats reports the number of indexed documents.
func (b *Backend) Stats(ctx context.Context) (*index.Stats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.index == nil {
		return nil, index.ErrIndexNotFound
	}
	n, err := b.index.DocCount()
	if err != nil {
		return nil, err
	}
	return &index.Stats{DocumentCount: n}, nil
}

// Close closes the index if it is open.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.index == nil {
		return nil
	}
	err := b.index.Close()
	b.index = nil
	return err
}

// fields drops the action marker from the document body.
func fields(a index.Action) map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		if k == index.ActionField {
			continue
		}
		out[k] = v
	}
	return out
}

func buildMapping(schema *index.Schema) *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentStaticMapping()

	for _, f := range schema.Fields {
		switch f.Kind {
		case index.KindText:
			fm := bleve.NewTextFieldMapping()
			fm.Analyzer = standard.Name
			doc.AddFieldMappingsAt(f.Name, fm)
		case index.KindKey, index.KindSimple:
			fm := bleve.NewTextFieldMapping()
			fm.Analyzer = keyword.Name
			doc.AddFieldMappingsAt(f.Name, fm)
		case index.KindVector:
			// Vectors are not searchable locally.
		}
	}

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m
}
