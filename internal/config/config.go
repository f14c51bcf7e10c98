// Package config loads CancerLit RAG settings from defaults, an optional TOML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Index backends.
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Config holds every tunable of the build path and the query path.
type Config struct {
	APIKey             string   `toml:"api_key"`
	BaseURL            string   `toml:"base_url"`
	EmbeddingModel     string   `toml:"embedding_model"`
	EmbeddingDimension int      `toml:"embedding_dimension"`
	ChatModel          string   `toml:"chat_model"`
	Datasets           []string `toml:"datasets"`
	SampleSize         int      `toml:"sample_size"`
	SampleSeed         uint64   `toml:"sample_seed"`
	ChunkSize          int      `toml:"chunk_size"`
	ChunkOverlap       int      `toml:"chunk_overlap"`
	TopK               int      `toml:"top_k"`
	IndexBackend       string   `toml:"index_backend"`
	IndexDir           string   `toml:"index_dir"`
	QdrantHost         string   `toml:"qdrant_host"`
	QdrantPort         int      `toml:"qdrant_port"`
	QdrantCollection   string   `toml:"qdrant_collection"`
	EmbedBatchSize     int      `toml:"embed_batch_size"`
	EmbedRPM           int      `toml:"embed_requests_per_minute"`
	GitHubToken        string   `toml:"github_token"`
	HFBaseURL          string   `toml:"hf_base_url"`

	// RequestTimeout bounds each external call (embedding, search, generation).
	RequestTimeout time.Duration `toml:"-"`
}

// Default returns the configuration the original deployment ran with.
func Default() Config {
	return Config{
		BaseURL:            "https://generativelanguage.googleapis.com/v1beta/openai/",
		EmbeddingModel:     "text-embedding-004",
		EmbeddingDimension: 768,
		ChatModel:          "gemini-2.5-flash",
		Datasets: []string{
			"hf:Gaborandi/breast_cancer_pubmed_abstracts",
			"hf:Gaborandi/Lung_Cancer_pubmed_abstracts",
		},
		SampleSize:       1000,
		SampleSeed:       42,
		ChunkSize:        1000,
		ChunkOverlap:     150,
		TopK:             3,
		IndexBackend:     BackendSQLite,
		IndexDir:         "cancer_pubmed_db",
		QdrantHost:       "localhost",
		QdrantPort:       6334,
		QdrantCollection: "cancer_abstracts",
		EmbedBatchSize:   100,
		HFBaseURL:        "https://datasets-server.huggingface.co",
		RequestTimeout:   60 * time.Second,
	}
}

// Load builds a Config from defaults, the TOML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	// Durations are written as strings ("45s") in the file.
	var extra struct {
		RequestTimeout string `toml:"request_timeout"`
	}
	if err := toml.Unmarshal(data, &extra); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if extra.RequestTimeout != "" {
		d, err := time.ParseDuration(extra.RequestTimeout)
		if err != nil {
			return fmt.Errorf("parse request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}

	return nil
}

func (c *Config) loadEnv() error {
	c.APIKey = getEnv("GEMINI_API_KEY", c.APIKey)
	c.BaseURL = getEnv("GEMINI_BASE_URL", c.BaseURL)
	c.EmbeddingModel = getEnv("EMBEDDING_MODEL", c.EmbeddingModel)
	c.ChatModel = getEnv("CHAT_MODEL", c.ChatModel)
	c.IndexBackend = getEnv("INDEX_BACKEND", c.IndexBackend)
	c.IndexDir = getEnv("INDEX_DIR", c.IndexDir)
	c.QdrantHost = getEnv("QDRANT_HOST", c.QdrantHost)
	c.QdrantCollection = getEnv("QDRANT_COLLECTION", c.QdrantCollection)
	c.GitHubToken = getEnv("GITHUB_TOKEN", c.GitHubToken)
	c.HFBaseURL = getEnv("HF_BASE_URL", c.HFBaseURL)

	if v := os.Getenv("DATASETS"); v != "" {
		c.Datasets = splitList(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"EMBEDDING_DIMENSION", &c.EmbeddingDimension},
		{"SAMPLE_SIZE", &c.SampleSize},
		{"CHUNK_SIZE", &c.ChunkSize},
		{"CHUNK_OVERLAP", &c.ChunkOverlap},
		{"TOP_K", &c.TopK},
		{"QDRANT_PORT", &c.QdrantPort},
		{"EMBED_BATCH_SIZE", &c.EmbedBatchSize},
		{"EMBED_REQUESTS_PER_MINUTE", &c.EmbedRPM},
	}
	for _, f := range ints {
		v, err := getEnvInt(f.key, *f.dst)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	if v := os.Getenv("SAMPLE_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SAMPLE_SEED: %w", err)
		}
		c.SampleSeed = seed
	}

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}

	return nil
}

// Validate reports a missing credential as ErrMissingCredential and any
// other inconsistent setting as a plain error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrMissingCredential)
	}

	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap))
	}
	if c.TopK < 1 {
		errs = append(errs, fmt.Errorf("top_k must be at least 1, got %d", c.TopK))
	}
	if c.SampleSize < 1 {
		errs = append(errs, fmt.Errorf("sample_size must be at least 1, got %d", c.SampleSize))
	}
	if c.EmbeddingDimension < 1 {
		errs = append(errs, fmt.Errorf("embedding_dimension must be at least 1, got %d", c.EmbeddingDimension))
	}
	if len(c.Datasets) == 0 {
		errs = append(errs, errors.New("at least one dataset is required"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	switch c.IndexBackend {
	case BackendSQLite, BackendQdrant:
	default:
		errs = append(errs, fmt.Errorf("unknown index_backend %q", c.IndexBackend))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
