package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/poiesic/imageindex/ai"
	"github.com/poiesic/imageindex/endpoint"
)

// Embedder implements ai.Embedder against a single OpenAI-compatible or Azure
// OpenAI endpoint.
type Embedder struct {
	endpoint endpoint.Endpoint
	embedder embeddings.Embedder
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// config must already be validated.
func newEmbedder(config *ai.Config, ep endpoint.Endpoint) (*Embedder, error) {
	token := ep.APIKey
	if token == "" {
		// Local OpenAI-compatible services do not require authentication.
		token = "none"
	}

	opts := []openai.Option{
		openai.WithBaseURL(ep.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	}
	if config.EmbeddingAPIType == ai.APITypeAzure {
		opts = append(opts,
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithAPIVersion(config.EmbeddingAPIVersion),
			openai.WithModel(config.EmbeddingModel),
		)
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		endpoint: ep,
		embedder: embedder,
		limiter:  newLimiter(config),
		logger:   slog.Default().With("component", "openai-embedder", "endpoint", ep.String()),
	}, nil
}

// NewEmbedder creates an embedder bound to ep.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config, ep endpoint.Endpoint) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newEmbedder(config, ep)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}

	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		err = classify(err)
		e.logger.Warn("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	return vectors, nil
}

// classify marks throttling responses so that callers can retry them.
// langchaingo reports HTTP failures as plain errors carrying the status code.
func classify(err error) error {
	if strings.Contains(err.Error(), "429") {
		return fmt.Errorf("%w: %w", ai.ErrRateLimited, err)
	}
	return err
}

func newLimiter(config *ai.Config) *rate.Limiter {
	if config.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
}
