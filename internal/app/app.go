// Package app wires configuration into the components both binaries share.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go/option"

	"github.com/mike-a-ellis/cancerlit-rag/internal/answer"
	"github.com/mike-a-ellis/cancerlit-rag/internal/chunker"
	"github.com/mike-a-ellis/cancerlit-rag/internal/config"
	"github.com/mike-a-ellis/cancerlit-rag/internal/corpus"
	"github.com/mike-a-ellis/cancerlit-rag/internal/embedding"
	ghclient "github.com/mike-a-ellis/cancerlit-rag/internal/github"
	"github.com/mike-a-ellis/cancerlit-rag/internal/index"
	"github.com/mike-a-ellis/cancerlit-rag/internal/indexer"
	"github.com/mike-a-ellis/cancerlit-rag/internal/rag"
	"github.com/mike-a-ellis/cancerlit-rag/internal/storage"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config    *config.Config
	Store     index.Store
	Embedder  *embedding.Embedder
	Generator *answer.Generator
	Indexer   *indexer.Pipeline

	logger *slog.Logger
}

// New builds every component. cfg must already be validated; no network
// call is made except the Qdrant health check when that backend is chosen.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := embedding.NewClient(cfg.APIKey, cfg.BaseURL, option.WithRequestTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, err
	}

	embedder := embedding.NewEmbedder(client, cfg.EmbeddingModel, cfg.EmbeddingDimension,
		embedding.WithBatchSize(cfg.EmbedBatchSize),
		embedding.WithRequestsPerMinute(cfg.EmbedRPM),
		embedding.WithTimeout(cfg.RequestTimeout),
	)
	generator := answer.NewGenerator(client.Client(), cfg.ChatModel, logger)

	chunks, err := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)
	if err != nil {
		return nil, err
	}

	fetcher, err := ghclient.NewFetcher(cfg.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("create GitHub client: %w", err)
	}
	resolver := &corpus.Resolver{
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
		HFBaseURL:  cfg.HFBaseURL,
		GitHub:     fetcher,
	}
	datasets, err := resolver.OpenAll(cfg.Datasets)
	if err != nil {
		return nil, err
	}
	loader := corpus.NewLoader(datasets, cfg.SampleSize, cfg.SampleSeed, logger)

	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Store:     store,
		Embedder:  embedder,
		Generator: generator,
		Indexer:   indexer.NewPipeline(loader, chunks, embedder, store, logger),
		logger:    logger,
	}, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (index.Store, error) {
	switch cfg.IndexBackend {
	case config.BackendQdrant:
		store, err := storage.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to Qdrant at %s:%d: %w", cfg.QdrantHost, cfg.QdrantPort, err)
		}
		return store, nil
	case config.BackendSQLite:
		return index.NewDirStore(cfg.IndexDir, logger), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.IndexBackend)
	}
}

// OpenIndex loads the saved index, building it first when none exists.
func (a *App) OpenIndex(ctx context.Context) (index.Index, *indexer.BuildResult, error) {
	return a.Indexer.Ensure(ctx)
}

// Rebuild builds a fresh index and replaces the saved one.
func (a *App) Rebuild(ctx context.Context) (*indexer.BuildResult, error) {
	_, result, err := a.Indexer.Build(ctx)
	return result, err
}

// Pipeline returns the question-answering handle over idx.
func (a *App) Pipeline(idx index.Index, opts ...rag.Option) *rag.Pipeline {
	base := []rag.Option{
		rag.WithTopK(a.Config.TopK),
		rag.WithTimeout(a.Config.RequestTimeout),
		rag.WithLogger(a.logger),
	}
	return rag.New(a.Embedder, idx, a.Generator, append(base, opts...)...)
}

// Describe reports a user-facing message for err. Embedding and generation
// errors already name their stage and are returned as they are.
func Describe(err error) string {
	switch {
	case errors.Is(err, config.ErrMissingCredential):
		return "Configuration error: set GEMINI_API_KEY in the environment or a .env file."
	case errors.Is(err, corpus.ErrFetch):
		return fmt.Sprintf("Could not fetch the abstract corpus: %v", err)
	case errors.Is(err, index.ErrNotFound):
		return fmt.Sprintf("No saved index: %v", err)
	default:
		return err.Error()
	}
}

// Close releases the index store.
func (a *App) Close() error {
	return a.Store.Close()
}
