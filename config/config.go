// Package config provides daemon configuration with multi-source priority:
// environment variables (RAGSTREAM_*) override an optional YAML file, which
// overrides built-in defaults. Validation is strict: a dimensionality
// mismatch between the embedding model and the vector index is a fatal
// configuration error, not something to retry at runtime.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidIndexProvider indicates an unsupported vector index provider.
	ErrInvalidIndexProvider = errors.New("invalid vector index provider")

	// ErrMissingIndexHost indicates the Pinecone index host is not set.
	ErrMissingIndexHost = errors.New("missing vector index host")

	// ErrMissingPostgresURL indicates the pgvector connection string is not set.
	ErrMissingPostgresURL = errors.New("missing postgres url")

	// ErrInvalidMaxSteps indicates the step bound is out of range.
	ErrInvalidMaxSteps = errors.New("invalid max steps")

	// ErrInvalidChunking indicates an unsupported smoothing policy.
	ErrInvalidChunking = errors.New("invalid chunking policy")

	// ErrDimensionMismatch indicates the embedding dimension does not match
	// the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension does not match index dimension")
)

// Vector index provider identifiers.
const (
	IndexProviderPinecone = "pinecone"
	IndexProviderPgvector = "pgvector"
)

// Config is the resolved daemon configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `mapstructure:"addr"`
	// RequestTimeout is the hard end-to-end wall clock bound per request.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// MaxSteps bounds generation↔tool round trips per request.
	MaxSteps int `mapstructure:"max_steps"`
	// Chunking selects the text smoothing policy ("word" or "none").
	Chunking string `mapstructure:"chunking"`

	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`

	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Index     IndexConfig     `mapstructure:"index"`
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	Model       string        `mapstructure:"model"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Dimension   int           `mapstructure:"dimension"`
}

// IndexConfig configures the vector index client.
type IndexConfig struct {
	Provider string `mapstructure:"provider"`

	// Pinecone settings.
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"api_key"`

	// pgvector settings.
	PostgresURL string `mapstructure:"postgres_url"`
	Table       string `mapstructure:"table"`

	Dimension int `mapstructure:"dimension"`
}

// Load resolves configuration from defaults, an optional config file and the
// environment. An empty path skips the file source entirely.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Every key needs a default so AutomaticEnv-provided values survive
	// Unmarshal; credentials default to empty and fail Validate instead.
	v.SetDefault("addr", ":8080")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("index.host", "")
	v.SetDefault("index.api_key", "")
	v.SetDefault("index.postgres_url", "")
	v.SetDefault("request_timeout", 60*time.Second)
	v.SetDefault("max_steps", 5)
	v.SetDefault("chunking", "word")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.max_attempts", 3)
	v.SetDefault("embedding.base_delay", time.Second)
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("index.provider", IndexProviderPinecone)
	v.SetDefault("index.table", "documents")
	v.SetDefault("index.dimension", 1536)

	v.SetEnvPrefix("RAGSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for fatal errors before the component
// graph is built.
func (c *Config) Validate() error {
	if c.MaxSteps < 1 {
		return fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidMaxSteps, c.MaxSteps)
	}

	if c.Chunking != "word" && c.Chunking != "none" {
		return fmt.Errorf("%w: %q", ErrInvalidChunking, c.Chunking)
	}

	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: openai_api_key", ErrMissingAPIKey)
	}

	switch c.Index.Provider {
	case IndexProviderPinecone:
		if c.Index.Host == "" {
			return ErrMissingIndexHost
		}
		if c.Index.APIKey == "" {
			return fmt.Errorf("%w: index.api_key", ErrMissingAPIKey)
		}
	case IndexProviderPgvector:
		if c.Index.PostgresURL == "" {
			return ErrMissingPostgresURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidIndexProvider, c.Index.Provider)
	}

	if c.Embedding.Dimension > 0 && c.Index.Dimension > 0 && c.Embedding.Dimension != c.Index.Dimension {
		return fmt.Errorf("%w: embedding %d, index %d", ErrDimensionMismatch, c.Embedding.Dimension, c.Index.Dimension)
	}

	return nil
}
