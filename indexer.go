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
package imageindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/imageindex/ai"
	"github.com/poiesic/imageindex/ai/openai"
	"github.com/poiesic/imageindex/ai/vision"
	"github.com/poiesic/imageindex/config"
	"github.com/poiesic/imageindex/endpoint"
	"github.com/poiesic/imageindex/enrich"
	"github.com/poiesic/imageindex/index"
	"github.com/poiesic/imageindex/index/bleve"
	"github.com/poiesic/imageindex/index/rest"
	"github.com/poiesic/imageindex/ingestion"
	"github.com/poiesic/imageindex/metrics"
	"github.com/poiesic/imageindex/storage"
	"github.com/poiesic/imageindex/storage/badger"
	"github.com/poiesic/imageindex/upload"
)

// Indexer wires the configured providers, index backend and run ledger together.
type Indexer struct {
	cfg      *config.Config
	backend  index.Backend
	ledger   *badger.Ledger
	enricher *enrich.Enricher
	uploader *upload.Uploader
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// IndexerOption is a functional option for configuring an Indexer.
type IndexerOption func(*indexerOptions)

type indexerOptions struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	backend   index.Backend
	vision    []ai.VisionProvider
	embedders []ai.Embedder
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) IndexerOption {
	return func(o *indexerOptions) {
		o.logger = logger
	}
}

// WithMetrics records pipeline metrics on m.
func WithMetrics(m *metrics.Metrics) IndexerOption {
	return func(o *indexerOptions) {
		o.metrics = m
	}
}

// WithBackend uses backend instead of opening the configured one.
func WithBackend(backend index.Backend) IndexerOption {
	return func(o *indexerOptions) {
		o.backend = backend
	}
}

// WithProviders uses the given services instead of the configured endpoints.
func WithProviders(visionProviders []ai.VisionProvider, embedders []ai.Embedder) IndexerOption {
	return func(o *indexerOptions) {
		o.vision = visionProviders
		o.embedders = embedders
	}
}

// NewIndexer builds an Indexer from cfg.
func NewIndexer(cfg *config.Config, opts ...IndexerOption) (*Indexer, error) {
	options := &indexerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	injected := len(options.vision) > 0 && len(options.embedders) > 0
	validate := cfg.ValidateRun
	if injected {
		validate = cfg.ValidatePipeline
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if !injected {
		var err error
		options.vision, options.embedders, err = openProviders(cfg.AIConfig(), options.logger)
		if err != nil {
			return nil, err
		}
	}

	ix := &Indexer{
		cfg:     cfg,
		backend: options.backend,
		metrics: options.metrics,
		logger:  options.logger,
	}

	if ix.backend == nil {
		backend, err := OpenIndex(cfg.Index, options.logger)
		if err != nil {
			return nil, err
		}
		ix.backend = backend
	}

	if cfg.LedgerPath != "" {
		ledger, err := badger.OpenLedger(cfg.LedgerPath, options.logger)
		if err != nil {
			ix.Close()
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		ix.ledger = ledger
	}

	enricher, err := newEnricher(cfg, options)
	if err != nil {
		ix.Close()
		return nil, err
	}
	ix.enricher = enricher

	uploader, err := upload.New(ix.backend, upload.WithMetrics(ix.metrics), upload.WithLogger(ix.logger))
	if err != nil {
		ix.Close()
		return nil, err
	}
	ix.uploader = uploader

	return ix, nil
}

func openProviders(aiCfg *ai.Config, logger *slog.Logger) ([]ai.VisionProvider, []ai.Embedder, error) {
	clients, err := vision.NewClients(aiCfg, vision.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("vision clients: %w", err)
	}
	visionProviders := make([]ai.VisionProvider, len(clients))
	for i, c := range clients {
		visionProviders[i] = c
	}

	embedders, err := openai.NewEmbedders(aiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("text embedders: %w", err)
	}
	return visionProviders, embedders, nil
}

func newEnricher(cfg *config.Config, o *indexerOptions) (*enrich.Enricher, error) {
	captioners := make([]ai.CaptionProvider, len(o.vision))
	analyzers := make([]ai.DocumentAnalyzer, len(o.vision))
	images := make([]ai.ImageEmbedder, len(o.vision))
	for i, v := range o.vision {
		captioners[i] = v
		analyzers[i] = v
		images[i] = v
	}

	captionPool, err := endpoint.NewPool(captioners...)
	if err != nil {
		return nil, err
	}
	analyzerPool, err := endpoint.NewPool(analyzers...)
	if err != nil {
		return nil, err
	}
	imagePool, err := endpoint.NewPool(images...)
	if err != nil {
		return nil, err
	}
	textPool, err := endpoint.NewPool(o.embedders...)
	if err != nil {
		return nil, err
	}

	return enrich.New(captionPool, analyzerPool,
		enrich.WithTextEmbedders(textPool),
		enrich.WithImageEmbedders(imagePool),
		enrich.WithRetryPolicy(cfg.RetryPolicy()),
		enrich.WithConcurrency(cfg.RecordConcurrency),
		enrich.WithMetrics(o.metrics),
		enrich.WithLogger(o.logger),
	)
}

// OpenIndex opens the index backend selected by cfg.
func OpenIndex(cfg config.IndexConfig, logger *slog.Logger) (index.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Backend == config.BackendREST {
		client, err := rest.New(
			endpoint.Endpoint{BaseURL: cfg.Endpoint, APIKey: cfg.APIKey},
			cfg.Name,
			rest.WithAPIVersion(cfg.APIVersion),
			rest.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	backend, err := bleve.Open(cfg.Path,
		bleve.WithSchema(index.DefaultSchema(cfg.Name)),
		bleve.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// EnsureIndex creates the configured index when it does not exist yet.
func (ix *Indexer) EnsureIndex(ctx context.Context) error {
	return ix.backend.EnsureIndex(ctx, index.DefaultSchema(ix.cfg.Index.Name))
}

// Stats reports the document count of the index.
func (ix *Indexer) Stats(ctx context.Context) (*index.Stats, error) {
	return ix.backend.Stats(ctx)
}

// NewPipeline returns an ingestion pipeline configured from the Indexer's
// configuration. Extra options are applied last.
func (ix *Indexer) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithBatchSize(ix.cfg.UploadBatchSize),
		ingestion.WithMaxWorkers(ix.cfg.MaxWorkers),
		ingestion.WithRemoveChunks(ix.cfg.RemoveChunks),
		ingestion.WithMetrics(ix.metrics),
		ingestion.WithLogger(ix.logger),
	}
	if ix.ledger != nil {
		base = append(base, ingestion.WithLedger(ix.ledger))
	}
	return ingestion.NewPipeline(ix.enricher, ix.uploader, append(base, opts...)...)
}

// Ledger returns the run ledger, or nil when none is configured.
func (ix *Indexer) Ledger() storage.Ledger {
	if ix.ledger == nil {
		return nil
	}
	return ix.ledger
}

// Close releases the worker pool, the ledger and the index backend.
func (ix *Indexer) Close() error {
	var errs []error
	if ix.enricher != nil {
		ix.enricher.Release()
	}
	if ix.ledger != nil {
		if err := ix.ledger.Close(); err != nil {
			ix.logger.Error("error closing ledger", "err", err)
			errs = append(errs, err)
		}
	}
	if ix.backend != nil {
		if err := ix.backend.Close(); err != nil {
			ix.logger.Error("error closing index backend", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
