package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/time/rate"

	"github.com/poiesic/imageindex/ai"
	"github.com/poiesic/imageindex/endpoint"
)

const (
	analyzePath   = "computervision/imageanalysis:analyze"
	vectorizePath = "computervision/retrieval:vectorizeImage"
	keyHeader     = "Ocp-Apim-Subscription-Key"
	providerName  = "vision"
	maxErrorBody  = 4096
)

// Client calls one image analysis endpoint. It implements ai.CaptionProvider,
// ai.DocumentAnalyzer and ai.ImageEmbedder.
type Client struct {
	endpoint     endpoint.Endpoint
	apiVersion   string
	modelVersion string
	http         *http.Client
	limiter      *rate.Limiter
	logger       *slog.Logger
}

var _ ai.VisionProvider = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.http = hc
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates a client bound to ep using the vision settings of config.
func NewClient(config *ai.Config, ep endpoint.Endpoint, opts ...Option) (*Client, error) {
	if ep.BaseURL == "" {
		return nil, fmt.Errorf("vision: endpoint base URL is required")
	}

	c := &Client{
		endpoint:     ep,
		apiVersion:   config.VisionAPIVersion,
		modelVersion: config.VisionModelVersion,
		http:         &http.Client{Timeout: config.Timeout},
		limiter:      rate.NewLimiter(rate.Inf, 0),
		logger:       slog.Default(),
	}
	if config.RequestsPerSecond > 0 {
		burst := max(config.Burst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "vision-client", "endpoint", ep.String())
	return c, nil
}

// NewClients creates one client per configured vision endpoint, in configuration order.
func NewClients(config *ai.Config, opts ...Option) ([]*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	out := make([]*Client, 0, len(config.VisionEndpoints))
	for _, ep := range config.VisionEndpoints {
		c, err := NewClient(config, ep, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type analyzeResponse struct {
	DenseCaptionsResult *struct {
		Values []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"values"`
	} `json:"denseCaptionsResult"`
	ReadResult *struct {
		Blocks []struct {
			Lines []struct {
				Text string `json:"text"`
			} `json:"lines"`
		} `json:"blocks"`
	} `json:"readResult"`
}

type vectorizeResponse struct {
	ModelVersion string    `json:"modelVersion"`
	Vector       []float32 `json:"vector"`
}

// Caption returns the dense captions of the image, concatenated in service order.
// An image without captions yields an empty string.
func (c *Client) Caption(ctx context.Context, imageURL string) (string, error) {
	var resp analyzeResponse
	if err := c.analyze(ctx, "denseCaptions", imageURL, &resp); err != nil {
		return "", err
	}
	if resp.DenseCaptionsResult == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, v := range resp.DenseCaptionsResult.Values {
		sb.WriteString(v.Text)
	}
	return sb.String(), nil
}

// ExtractText returns every recognized line of text joined by newlines. source
// is either an http(s) URL or a local file path whose bytes are uploaded.
func (c *Client) ExtractText(ctx context.Context, source string) (string, error) {
	var resp analyzeResponse
	if err := c.analyze(ctx, "read", source, &resp); err != nil {
		return "", err
	}
	if resp.ReadResult == nil {
		return "", nil
	}

	var lines []string
	for _, block := range resp.ReadResult.Blocks {
		for _, line := range block.Lines {
			lines = append(lines, line.Text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// EmbedImage returns the image's vector from the multimodal retrieval model.
func (c *Client) EmbedImage(ctx context.Context, imageURL string) ([]float32, error) {
	q := url.Values{}
	q.Set("api-version", c.apiVersion)
	q.Set("model-version", c.modelVersion)

	var resp vectorizeResponse
	if err := c.post(ctx, vectorizePath, q, imageURL, &resp); err != nil {
		return nil, err
	}
	return resp.Vector, nil
}

func (c *Client) analyze(ctx context.Context, features, source string, out any) error {
	q := url.Values{}
	q.Set("api-version", c.apiVersion)
	q.Set("features", features)
	q.Set("gender-neutral-caption", "false")
	return c.post(ctx, analyzePath, q, source, out)
}

// post sends source as a JSON url body when it is an http(s) URL and as raw
// bytes otherwise, then decodes a successful response into out.
func (c *Client) post(ctx context.Context, path string, query url.Values, source string, out any) error {
	body, contentType, err := requestBody(source)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.URL(path)+"?"+query.Encode(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(keyHeader, c.endpoint.APIKey)

	c.logger.Debug("vision request", "path", path, "source", source)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("vision %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &ai.StatusError{Provider: providerName, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		if resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn("vision request throttled", "path", path)
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("vision %s: decode response: %w", path, err)
	}
	return nil
}

func requestBody(source string) (io.Reader, string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err := json.Marshal(map[string]string{"url": source})
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, "", fmt.Errorf("vision: read %s: %w", source, err)
	}
	return bytes.NewReader(data), "application/octet-stream", nil
}
