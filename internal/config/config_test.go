package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"GEMINI_API_KEY", "GEMINI_BASE_URL", "EMBEDDING_MODEL", "EMBEDDING_DIMENSION",
		"CHAT_MODEL", "DATASETS", "SAMPLE_SIZE", "SAMPLE_SEED", "CHUNK_SIZE",
		"CHUNK_OVERLAP", "TOP_K", "INDEX_BACKEND", "INDEX_DIR", "QDRANT_HOST",
		"QDRANT_PORT", "QDRANT_COLLECTION", "REQUEST_TIMEOUT", "EMBED_BATCH_SIZE",
		"EMBED_REQUESTS_PER_MINUTE", "GITHUB_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingCredential(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Nil(t, cfg)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "text-embedding-004", cfg.EmbeddingModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.ChatModel)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 150, cfg.ChunkOverlap)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, 1000, cfg.SampleSize)
	assert.Equal(t, uint64(42), cfg.SampleSeed)
	assert.Equal(t, BackendSQLite, cfg.IndexBackend)
	assert.Len(t, cfg.Datasets, 2)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("DATASETS", "hf:a/b, github:o/r/data.jsonl ,")
	t.Setenv("TOP_K", "5")
	t.Setenv("SAMPLE_SEED", "7")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("INDEX_BACKEND", "qdrant")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"hf:a/b", "github:o/r/data.jsonl"}, cfg.Datasets)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, uint64(7), cfg.SampleSeed)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, BackendQdrant, cfg.IndexBackend)
}

func TestLoad_InvalidInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("CHUNK_SIZE", "large")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHUNK_SIZE")
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	path := filepath.Join(t.TempDir(), "cancerlit.toml")
	content := `
api_key = "file-key"
chunk_size = 500
chunk_overlap = 50
datasets = ["hf:x/y"]
request_timeout = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Environment wins over the file.
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, []string{"hf:x/y"}, cfg.Datasets)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "gemini-2.5-flash", cfg.ChatModel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"overlap too large", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, "chunk_overlap"},
		{"zero top k", func(c *Config) { c.TopK = 0 }, "top_k"},
		{"unknown backend", func(c *Config) { c.IndexBackend = "chroma" }, "index_backend"},
		{"no datasets", func(c *Config) { c.Datasets = nil }, "dataset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.APIKey = "k"
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrMissingCredential)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
