package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/poiesic/imageindex/ai"
	"github.com/poiesic/imageindex/endpoint"
	"github.com/poiesic/imageindex/retry"
)

// EnvPrefix prefixes every environment override, e.g. IMAGEINDEX_INDEX_API_KEY.
const EnvPrefix = "IMAGEINDEX"

// Index backends.
const (
	BackendBleve = "bleve"
	BackendREST  = "rest"
)

// Config holds the configuration of an ingestion run.
type Config struct {
	TempDir           string `mapstructure:"temp_dir"`
	LinesPerChunk     int    `mapstructure:"lines_per_chunk"`
	UploadBatchSize   int    `mapstructure:"upload_batch_size"`
	MaxWorkers        int    `mapstructure:"max_workers"`
	RecordConcurrency int    `mapstructure:"record_concurrency"`
	RemoveChunks      bool   `mapstructure:"remove_chunks"`
	LedgerPath        string `mapstructure:"ledger_path"`
	LogLevel          string `mapstructure:"log_level"`
	MetricsAddr       string `mapstructure:"metrics_addr"`

	Retry     RetryConfig     `mapstructure:"retry"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Vision    VisionConfig    `mapstructure:"vision"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Index     IndexConfig     `mapstructure:"index"`
}

// EndpointConfig is one replica of a remote service.
type EndpointConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// RetryConfig controls backoff on throttled provider calls.
type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// ProvidersConfig holds limits shared by every provider endpoint.
type ProvidersConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// VisionConfig describes the image analysis service.
type VisionConfig struct {
	Endpoints    []EndpointConfig `mapstructure:"endpoints"`
	APIVersion   string           `mapstructure:"api_version"`
	ModelVersion string           `mapstructure:"model_version"`
}

// EmbeddingConfig describes the text embedding service.
type EmbeddingConfig struct {
	Endpoints  []EndpointConfig `mapstructure:"endpoints"`
	Model      string           `mapstructure:"model"`
	APIType    string           `mapstructure:"api_type"`
	APIVersion string           `mapstructure:"api_version"`
}

// IndexConfig selects and configures the search index backend.
type IndexConfig struct {
	Backend    string `mapstructure:"backend"`
	Name       string `mapstructure:"name"`
	Path       string `mapstructure:"path"`
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	APIVersion string `mapstructure:"api_version"`
}

// Validate checks the index section.
func (c IndexConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("index.name is required")
	}
	switch c.Backend {
	case BackendBleve:
		return nil
	case BackendREST:
		if strings.TrimSpace(c.Endpoint) == "" {
			return errors.New("index.endpoint is required for the rest backend")
		}
		return nil
	default:
		return fmt.Errorf("index.backend must be %q or %q, got %q", BackendBleve, BackendREST, c.Backend)
	}
}

// Load reads configuration from path (YAML, optional), then applies IMAGEINDEX_*
// environment overrides over the defaults. The result is not validated; call
// Validate once command line overrides are applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("temp_dir", filepath.Join(os.TempDir(), "imageindex"))
	v.SetDefault("lines_per_chunk", 100)
	v.SetDefault("upload_batch_size", 50)
	v.SetDefault("max_workers", runtime.NumCPU())
	v.SetDefault("record_concurrency", 16)
	v.SetDefault("remove_chunks", false)
	v.SetDefault("ledger_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")

	v.SetDefault("retry.max_retries", retry.DefaultMaxRetries)
	v.SetDefault("retry.initial_backoff", retry.DefaultInitialBackoff)

	defaults := ai.DefaultConfig()
	v.SetDefault("providers.requests_per_second", 0)
	v.SetDefault("providers.burst", 1)
	v.SetDefault("providers.timeout", defaults.Timeout)
	v.SetDefault("vision.api_version", defaults.VisionAPIVersion)
	v.SetDefault("vision.model_version", defaults.VisionModelVersion)
	v.SetDefault("embedding.model", defaults.EmbeddingModel)
	v.SetDefault("embedding.api_type", defaults.EmbeddingAPIType)
	v.SetDefault("embedding.api_version", "2023-05-15")

	v.SetDefault("index.backend", BackendBleve)
	v.SetDefault("index.name", "images")
	v.SetDefault("index.path", "")
	v.SetDefault("index.endpoint", "")
	v.SetDefault("index.api_key", "")
	v.SetDefault("index.api_version", "2023-11-01")
}

// ValidateRun checks every setting needed to split, enrich and index files.
func (c *Config) ValidateRun() error {
	return errors.Join(c.ValidatePipeline(), c.AIConfig().Validate())
}

// ValidatePipeline checks the settings that do not concern provider endpoints.
func (c *Config) ValidatePipeline() error {
	var errs []error
	if strings.TrimSpace(c.TempDir) == "" {
		errs = append(errs, errors.New("temp_dir is required"))
	}
	if c.LinesPerChunk <= 0 {
		errs = append(errs, errors.New("lines_per_chunk must be greater than zero"))
	}
	if c.UploadBatchSize <= 0 {
		errs = append(errs, errors.New("upload_batch_size must be greater than zero"))
	}
	if c.MaxWorkers <= 0 {
		errs = append(errs, errors.New("max_workers must be greater than zero"))
	}
	if c.RecordConcurrency <= 0 {
		errs = append(errs, errors.New("record_concurrency must be greater than zero"))
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}
	if err := c.Index.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RetryPolicy returns the provider retry policy.
func (c *Config) RetryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = c.Retry.MaxRetries
	p.InitialBackoff = c.Retry.InitialBackoff
	return p
}

// AIConfig converts the provider sections into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithVisionEndpoints(endpoints(c.Vision.Endpoints)...),
		ai.WithEmbeddingEndpoints(endpoints(c.Embedding.Endpoints)...),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithEmbeddingAPI(c.Embedding.APIType, c.Embedding.APIVersion),
		ai.WithRateLimit(c.Providers.RequestsPerSecond, c.Providers.Burst),
		ai.WithTimeout(c.Providers.Timeout),
		func(cfg *ai.Config) {
			if c.Vision.APIVersion != "" {
				cfg.VisionAPIVersion = c.Vision.APIVersion
			}
			if c.Vision.ModelVersion != "" {
				cfg.VisionModelVersion = c.Vision.ModelVersion
			}
		},
	)
}

func endpoints(in []EndpointConfig) []endpoint.Endpoint {
	out := make([]endpoint.Endpoint, 0, len(in))
	for _, e := range in {
		out = append(out, endpoint.Endpoint{
			BaseURL: strings.TrimSpace(e.BaseURL),
			APIKey:  e.APIKey,
		})
	}
	return out
}
