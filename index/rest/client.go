package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/imageindex/endpoint"
	"github.com/poiesic/imageindex/index"
)

// DefaultAPIVersion is the search service API version used when none is configured.
const DefaultAPIVersion = "2023-11-01"

const maxErrorBody = 4096

var (
	// ErrEndpointRequired is returned when no service endpoint is provided.
	ErrEndpointRequired = errors.New("search service endpoint is required")

	// ErrIndexNameRequired is returned when no index name is provided.
	ErrIndexNameRequired = errors.New("index name is required")
)

// HTTPError is returned for unexpected responses from the search service.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client is an index.Backend for an Azure AI Search style REST service.
type Client struct {
	endpoint   endpoint.Endpoint
	name       string
	apiVersion string
	http       *http.Client
	logger     *slog.Logger
}

var _ index.Backend = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithAPIVersion overrides DefaultAPIVersion.
func WithAPIVersion(v string) Option {
	return func(c *Client) error {
		if v != "" {
			c.apiVersion = v
		}
		return nil
	}
}

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

// New creates a client for index name on the service at ep. ep.APIKey is sent
// as the admin key.
func New(ep endpoint.Endpoint, name string, opts ...Option) (*Client, error) {
	if ep.BaseURL == "" {
		return nil, ErrEndpointRequired
	}
	if name == "" {
		return nil, ErrIndexNameRequired
	}

	c := &Client{
		endpoint:   ep,
		name:       name,
		apiVersion: DefaultAPIVersion,
		http:       &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "search-client", "index", name)
	return c, nil
}

type uploadResponse struct {
	Value []struct {
		Key          string  `json:"key"`
		Status       bool    `json:"status"`
		ErrorMessage *string `json:"errorMessage"`
		StatusCode   int     `json:"statusCode"`
	} `json:"value"`
}

// UploadBatch posts actions to the docs/index route. The service answers 200
// when every document succeeded and 207 when some failed; both carry one
// result per document.
func (c *Client) UploadBatch(ctx context.Context, actions []index.Action) ([]index.Result, error) {
	body := map[string]any{"value": actions}

	var resp uploadResponse
	status, err := c.do(ctx, http.MethodPost, "indexes/"+url.PathEscape(c.name)+"/docs/index", body, &resp,
		http.StatusOK, http.StatusMultiStatus)
	if err != nil {
		return nil, err
	}

	results := make([]index.Result, len(resp.Value))
	for i, v := range resp.Value {
		results[i] = index.Result{Key: v.Key, Succeeded: v.Status, StatusCode: v.StatusCode}
		if v.ErrorMessage != nil {
			results[i].ErrorMessage = *v.ErrorMessage
		}
	}
	c.logger.Debug("uploaded batch", "size", len(actions), "status", status)
	return results, nil
}

// EnsureIndex creates the index when a GET for it returns 404.
func (c *Client) EnsureIndex(ctx context.Context, schema *index.Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	path := "indexes/" + url.PathEscape(schema.Name)
	_, err := c.do(ctx, http.MethodGet, path, nil, nil, http.StatusOK)
	if err == nil {
		c.logger.Info("index already exists", "name", schema.Name)
		return nil
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		return err
	}

	if _, err := c.do(ctx, http.MethodPut, path, definition(schema), nil, http.StatusOK, http.StatusCreated); err != nil {
		return fmt.Errorf("create index %s: %w", schema.Name, err)
	}
	c.logger.Info("created index", "name", schema.Name)
	return nil
}

// Stats returns the document count and storage size of the index.
func (c *Client) Stats(ctx context.Context) (*index.Stats, error) {
	var resp struct {
		DocumentCount uint64 `json:"documentCount"`
		StorageSize   uint64 `json:"storageSize"`
	}
	if _, err := c.do(ctx, http.MethodGet, "indexes/"+url.PathEscape(c.name)+"/stats", nil, &resp, http.StatusOK); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w", index.ErrIndexNotFound, err)
		}
		return nil, err
	}
	return &index.Stats{DocumentCount: resp.DocumentCount, StorageSize: resp.StorageSize}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, accept ...int) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(data)
	}

	u := c.endpoint.URL(path) + "?api-version=" + url.QueryEscape(c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("api-key", c.endpoint.APIKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	ok := false
	for _, code := range accept {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &HTTPError{Method: method, URL: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}
