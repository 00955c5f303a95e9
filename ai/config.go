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


package ai

import (
	"errors"
	"strings"
	"time"

	"github.com/poiesic/imageindex/endpoint"
)

// Embedding API flavours understood by the text embedder.
const (
	APITypeOpenAI = "openai"
	APITypeAzure  = "azure"
)

// Config holds configuration for AI service providers.
type Config struct {
	// VisionEndpoints are equivalent replicas of the image analysis service,
	// used round-robin for captions, OCR and image vectors.
	// Example: "https://eastus.api.cognitive.microsoft.com/"
	VisionEndpoints []endpoint.Endpoint

	// VisionAPIVersion is sent with image vectorization requests.
	// Default: "2024-02-01"
	VisionAPIVersion string

	// VisionModelVersion selects the image embedding model.
	// Default: "2023-04-15"
	VisionModelVersion string

	// EmbeddingEndpoints are equivalent replicas of the text embedding service.
	EmbeddingEndpoints []endpoint.Endpoint

	// EmbeddingModel is the model (or Azure deployment) identifier for text embeddings.
	// Default: "text-embedding-ada-002"
	EmbeddingModel string

	// EmbeddingAPIType is either "openai" or "azure".
	EmbeddingAPIType string

	// EmbeddingAPIVersion is required by Azure deployments.
	EmbeddingAPIVersion string

	// RequestsPerSecond caps calls per endpoint. Zero disables client-side limiting.
	RequestsPerSecond float64

	// Burst is the token bucket size used with RequestsPerSecond.
	Burst int

	// Timeout bounds a single HTTP request.
	// Default: 30s
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithVisionEndpoints sets the image analysis replicas.
func WithVisionEndpoints(eps ...endpoint.Endpoint) ConfigOption {
	return func(c *Config) {
		c.VisionEndpoints = eps
	}
}

// WithEmbeddingEndpoints sets the text embedding replicas.
func WithEmbeddingEndpoints(eps ...endpoint.Endpoint) ConfigOption {
	return func(c *Config) {
		c.EmbeddingEndpoints = eps
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithEmbeddingAPI sets the embedding API type and version.
func WithEmbeddingAPI(apiType, apiVersion string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingAPIType = apiType
		c.EmbeddingAPIVersion = apiVersion
	}
}

// WithRateLimit sets the per-endpoint request rate and burst.
func WithRateLimit(rps float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
		c.Burst = burst
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// DefaultConfig returns a Config with the defaults used by the Azure services.
// Endpoints are left empty and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		VisionAPIVersion:   "2024-02-01",
		VisionModelVersion: "2023-04-15",
		EmbeddingModel:     "text-embedding-ada-002",
		EmbeddingAPIType:   APITypeAzure,
		Timeout:            30 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithVisionEndpoints(endpoint.Endpoint{BaseURL: "https://vision-1/", APIKey: key1}),
//	    WithEmbeddingEndpoints(endpoint.Endpoint{BaseURL: "https://openai-1/", APIKey: key2}),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible embedding hosts get a /v1 suffix when it is missing.
func (c *Config) Normalize() {
	c.EmbeddingAPIType = strings.ToLower(strings.TrimSpace(c.EmbeddingAPIType))
	if c.EmbeddingAPIType == "" {
		c.EmbeddingAPIType = APITypeAzure
	}
	if c.EmbeddingAPIType != APITypeOpenAI {
		return
	}
	for i, ep := range c.EmbeddingEndpoints {
		if ep.BaseURL != "" && !strings.HasSuffix(ep.BaseURL, "/v1") {
			c.EmbeddingEndpoints[i].BaseURL = strings.TrimSuffix(ep.BaseURL, "/") + "/v1"
		}
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if len(c.VisionEndpoints) == 0 {
		return errors.New("ai config: at least one vision endpoint is required")
	}
	if len(c.EmbeddingEndpoints) == 0 {
		return errors.New("ai config: at least one embedding endpoint is required")
	}
	for _, ep := range append(append([]endpoint.Endpoint{}, c.VisionEndpoints...), c.EmbeddingEndpoints...) {
		if ep.BaseURL == "" {
			return errors.New("ai config: endpoint base URL is required")
		}
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.EmbeddingAPIType != APITypeOpenAI && c.EmbeddingAPIType != APITypeAzure {
		return errors.New("ai config: EmbeddingAPIType must be openai or azure")
	}
	if c.EmbeddingAPIType == APITypeAzure && c.EmbeddingAPIVersion == "" {
		return errors.New("ai config: EmbeddingAPIVersion is required for azure")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond must not be negative")
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be positive")
	}
	return nil
}
