package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/poiesic/imageindex/ai"
	"github.com/poiesic/imageindex/core"
	"github.com/poiesic/imageindex/endpoint"
	"github.com/poiesic/imageindex/metrics"
	"github.com/poiesic/imageindex/retry"
)

// DefaultConcurrency bounds concurrently enriched records when no worker pool is shared.
const DefaultConcurrency = 16

// Enricher turns records into documents by calling remote providers.
// Every provider call picks the next endpoint of its pool and is wrapped in
// retry.Do, so retries of one call may land on different endpoints.
type Enricher struct {
	captioners     *endpoint.Pool[ai.CaptionProvider]
	analyzers      *endpoint.Pool[ai.DocumentAnalyzer]
	textEmbedders  *endpoint.Pool[ai.Embedder]
	imageEmbedders *endpoint.Pool[ai.ImageEmbedder]

	policy   retry.Policy
	classify retry.Classifier

	workers     *ants.Pool
	ownsWorkers bool

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher) error

// WithTextEmbedders enables the caption, content and OCR text vectors.
func WithTextEmbedders(pool *endpoint.Pool[ai.Embedder]) Option {
	return func(e *Enricher) error {
		e.textEmbedders = pool
		return nil
	}
}

// WithImageEmbedders enables the image vector.
func WithImageEmbedders(pool *endpoint.Pool[ai.ImageEmbedder]) Option {
	return func(e *Enricher) error {
		e.imageEmbedders = pool
		return nil
	}
}

// WithRetryPolicy sets the retry policy applied to every provider call.
// Default is retry.DefaultPolicy().
func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Enricher) error {
		if err := p.Validate(); err != nil {
			return err
		}
		e.policy = p
		return nil
	}
}

// WithClassifier sets which provider errors are retried.
// Default is retry.RateLimited.
func WithClassifier(c retry.Classifier) Option {
	return func(e *Enricher) error {
		e.classify = c
		return nil
	}
}

// WithWorkerPool shares a record worker pool across enrichers.
// The pool is not released by Release.
func WithWorkerPool(pool *ants.Pool) Option {
	return func(e *Enricher) error {
		if e.ownsWorkers && e.workers != nil {
			e.workers.Release()
		}
		e.workers = pool
		e.ownsWorkers = false
		return nil
	}
}

// WithConcurrency sets the size of the Enricher's own record worker pool.
func WithConcurrency(n int) Option {
	return func(e *Enricher) error {
		if n < 1 {
			n = 1
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		if e.ownsWorkers && e.workers != nil {
			e.workers.Release()
		}
		e.workers = pool
		e.ownsWorkers = true
		return nil
	}
}

// WithMetrics records outcomes, retries and call latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Enricher) error {
		e.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// New creates an Enricher. Caption and OCR pools are mandatory; embedding
// pools are optional and enabled with options.
func New(
	captioners *endpoint.Pool[ai.CaptionProvider],
	analyzers *endpoint.Pool[ai.DocumentAnalyzer],
	opts ...Option,
) (*Enricher, error) {
	if captioners == nil {
		return nil, ErrCaptionersRequired
	}
	if analyzers == nil {
		return nil, ErrAnalyzersRequired
	}

	e := &Enricher{
		captioners: captioners,
		analyzers:  analyzers,
		policy:     retry.DefaultPolicy(),
		classify:   retry.RateLimited,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.Release()
			return nil, err
		}
	}

	if e.workers == nil {
		pool, err := ants.NewPool(DefaultConcurrency)
		if err != nil {
			return nil, err
		}
		e.workers = pool
		e.ownsWorkers = true
	}

	e.logger = e.logger.With("component", "enricher")
	return e, nil
}

// Release frees the worker pool if the Enricher created it.
func (e *Enricher) Release() {
	if e.ownsWorkers && e.workers != nil {
		e.workers.Release()
		e.workers = nil
	}
}

// Enrich builds the document for one record.
//
// Caption and OCR run concurrently and are mandatory: if either fails after
// retries the record fails with a *core.RecordError. The four embeddings then run
// concurrently and are optional: a failed or skipped embedding leaves its vector
// nil and the document is still returned.
func (e *Enricher) Enrich(ctx context.Context, record core.Record) (*core.Document, error) {
	core.NormalizeRecord(&record)
	if err := core.ValidateRecord(&record); err != nil {
		return nil, &core.RecordError{RecordID: record.Key(), Step: StepValidate, Err: err}
	}

	doc := &core.Document{
		ID:       record.ID,
		Content:  record.Content,
		ImageURL: record.ImageURL,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		caption, err := call(gctx, e, StepCaption, func(ctx context.Context) (string, error) {
			return e.captioners.Next().Caption(ctx, record.ImageURL)
		})
		if err != nil {
			return &core.RecordError{RecordID: record.ID, Step: StepCaption, Err: err}
		}
		doc.Caption = caption
		return nil
	})
	g.Go(func() error {
		text, err := call(gctx, e, StepOCR, func(ctx context.Context) (string, error) {
			return e.analyzers.Next().ExtractText(ctx, record.DocumentSource)
		})
		if err != nil {
			return &core.RecordError{RecordID: record.ID, Step: StepOCR, Err: err}
		}
		doc.OCRContent = text
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.embed(ctx, doc)
	return doc, nil
}

// embed fills the document's vectors. Failures are logged and counted only.
func (e *Enricher) embed(ctx context.Context, doc *core.Document) {
	var g errgroup.Group

	if e.textEmbedders != nil {
		texts := []struct {
			field  string
			source string
			target *[]float32
		}{
			{"captionVector", doc.Caption, &doc.CaptionVector},
			{"contentVector", doc.Content, &doc.ContentVector},
			{"ocrContentVector", doc.OCRContent, &doc.OCRContentVector},
		}
		for _, t := range texts {
			if t.source == "" {
				continue
			}
			g.Go(func() error {
				vec, err := call(ctx, e, t.field, func(ctx context.Context) ([]float32, error) {
					return e.textEmbedders.Next().EmbedText(ctx, t.source)
				})
				e.assign(doc.ID, t.field, t.target, vec, err)
				return nil
			})
		}
	}

	if e.imageEmbedders != nil {
		g.Go(func() error {
			vec, err := call(ctx, e, "imageVector", func(ctx context.Context) ([]float32, error) {
				return e.imageEmbedders.Next().EmbedImage(ctx, doc.ImageURL)
			})
			e.assign(doc.ID, "imageVector", &doc.ImageVector, vec, err)
			return nil
		})
	}

	_ = g.Wait()
}

// assign stores vec in target unless the call failed or the vector does not
// have the dimensions the index expects for field.
func (e *Enricher) assign(id, field string, target *[]float32, vec []float32, err error) {
	want := core.TextVectorDimensions
	if field == "imageVector" {
		want = core.ImageVectorDimensions
	}
	switch {
	case err != nil:
	case len(vec) == 0:
		err = errEmptyVector
	case len(vec) != want:
		err = fmt.Errorf("%w: got %d, want %d", core.ErrVectorDimensions, len(vec), want)
	}
	if err != nil {
		e.logger.Warn("vector omitted", "record", id, "field", field, "err", err)
		e.metrics.VectorOmitted(field)
		return
	}
	*target = vec
}

// call runs op under the retry policy and records retries and latency.
func call[T any](ctx context.Context, e *Enricher, capability string, op func(context.Context) (T, error)) (T, error) {
	p := e.policy
	onRetry := p.OnRetry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		e.metrics.Retry(capability)
		e.logger.Warn("provider throttled, backing off",
			"capability", capability, "attempt", attempt, "delay", delay)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}
	if p.Logger == nil {
		p.Logger = e.logger
	}

	start := time.Now()
	v, err := retry.Do(ctx, p, e.classify, op)
	e.metrics.ObserveCall(capability, start, err)
	return v, err
}
