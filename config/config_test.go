package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Addr:           ":8080",
		RequestTimeout: 60 * time.Second,
		MaxSteps:       5,
		Chunking:       "word",
		OpenAIAPIKey:   "sk-test",
		Embedding: EmbeddingConfig{
			Model:       "text-embedding-3-small",
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Dimension:   1536,
		},
		Index: IndexConfig{
			Provider:  IndexProviderPinecone,
			Host:      "idx.svc.pinecone.io",
			APIKey:    "pc-test",
			Dimension: 1536,
		},
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RAGSTREAM_OPENAI_API_KEY", "sk-test")
	t.Setenv("RAGSTREAM_INDEX_HOST", "idx.svc.pinecone.io")
	t.Setenv("RAGSTREAM_INDEX_API_KEY", "pc-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5, cfg.MaxSteps)
	assert.Equal(t, "word", cfg.Chunking)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 3, cfg.Embedding.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Embedding.BaseDelay)
	assert.Equal(t, IndexProviderPinecone, cfg.Index.Provider)
	assert.Equal(t, "documents", cfg.Index.Table)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RAGSTREAM_OPENAI_API_KEY", "sk-test")
	t.Setenv("RAGSTREAM_INDEX_HOST", "idx.svc.pinecone.io")
	t.Setenv("RAGSTREAM_INDEX_API_KEY", "pc-test")
	t.Setenv("RAGSTREAM_MAX_STEPS", "3")
	t.Setenv("RAGSTREAM_CHUNKING", "none")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxSteps)
	assert.Equal(t, "none", cfg.Chunking)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ragstream.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
openai_api_key: sk-file
max_steps: 4
index:
  provider: pgvector
  postgres_url: postgres://localhost:5432/ragstream
  table: chunks
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "sk-file", cfg.OpenAIAPIKey)
	assert.Equal(t, 4, cfg.MaxSteps)
	assert.Equal(t, IndexProviderPgvector, cfg.Index.Provider)
	assert.Equal(t, "chunks", cfg.Index.Table)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing openai key",
			mutate:  func(c *Config) { c.OpenAIAPIKey = "" },
			wantErr: ErrMissingAPIKey,
		},
		{
			name:    "zero max steps",
			mutate:  func(c *Config) { c.MaxSteps = 0 },
			wantErr: ErrInvalidMaxSteps,
		},
		{
			name:    "bad chunking",
			mutate:  func(c *Config) { c.Chunking = "sentence" },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "unknown index provider",
			mutate:  func(c *Config) { c.Index.Provider = "weaviate" },
			wantErr: ErrInvalidIndexProvider,
		},
		{
			name:    "pinecone without host",
			mutate:  func(c *Config) { c.Index.Host = "" },
			wantErr: ErrMissingIndexHost,
		},
		{
			name:    "pinecone without api key",
			mutate:  func(c *Config) { c.Index.APIKey = "" },
			wantErr: ErrMissingAPIKey,
		},
		{
			name: "pgvector without url",
			mutate: func(c *Config) {
				c.Index.Provider = IndexProviderPgvector
				c.Index.PostgresURL = ""
			},
			wantErr: ErrMissingPostgresURL,
		},
		{
			name:    "dimension mismatch",
			mutate:  func(c *Config) { c.Embedding.Dimension = 768 },
			wantErr: ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
