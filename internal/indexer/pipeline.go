// Package indexer builds the vector index from the abstract corpus and
// decides at startup whether to load or rebuild it.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mike-a-ellis/cancerlit-rag/internal/chunker"
	"github.com/mike-a-ellis/cancerlit-rag/internal/corpus"
	"github.com/mike-a-ellis/cancerlit-rag/internal/index"
)

// DocumentLoader supplies the sampled, filtered corpus.
type DocumentLoader interface {
	Load(ctx context.Context) ([]corpus.Document, error)
}

// DocumentEmbedder embeds chunk texts in input order.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// BuildResult contains statistics about a build.
type BuildResult struct {
	Documents int
	Chunks    int
	Dimension int
	Duration  time.Duration
}

// Pipeline runs corpus loading, chunking, embedding and persistence.
type Pipeline struct {
	loader   DocumentLoader
	chunker  *chunker.Chunker
	embedder DocumentEmbedder
	store    index.Store
	logger   *slog.Logger
}

// NewPipeline creates a new indexing pipeline with the given components.
func NewPipeline(
	loader DocumentLoader,
	chunker *chunker.Chunker,
	embedder DocumentEmbedder,
	store index.Store,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Build constructs the index from scratch and saves it, replacing any saved
// index. Nothing is written unless every earlier stage succeeds.
func (p *Pipeline) Build(ctx context.Context) (*index.Flat, *BuildResult, error) {
	start := time.Now()

	docs, err := p.loader.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	p.logger.Info("Loaded corpus", "documents", len(docs))

	chunks := p.chunker.ChunkDocuments(docs)
	p.logger.Info("Chunked corpus", "chunks", len(chunks),
		"chunk_size", p.chunker.ChunkSize(), "overlap", p.chunker.Overlap())

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, nil, err
	}

	idx, err := index.Build(chunks, embeddings)
	if err != nil {
		return nil, nil, fmt.Errorf("build index: %w", err)
	}

	if err := p.store.Save(ctx, idx); err != nil {
		return nil, nil, fmt.Errorf("save index: %w", err)
	}

	result := &BuildResult{
		Documents: len(docs),
		Chunks:    idx.Len(),
		Dimension: idx.Dimension(),
		Duration:  time.Since(start),
	}
	p.logger.Info("Indexing complete",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"duration", result.Duration,
	)

	return idx, result, nil
}

// Ensure loads the saved index, building it first when none exists. The
// BuildResult is nil when an existing index was loaded.
func (p *Pipeline) Ensure(ctx context.Context) (index.Index, *BuildResult, error) {
	exists, err := p.store.Exists(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("check index: %w", err)
	}

	if !exists {
		p.logger.Info("No saved index, building")
		idx, result, err := p.Build(ctx)
		if err != nil {
			return nil, nil, err
		}
		return idx, result, nil
	}

	idx, err := p.store.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load index: %w", err)
	}
	if idx.Len() > 0 && idx.Dimension() != p.embedder.Dimension() {
		return nil, nil, fmt.Errorf("%w: saved index has %d dimensions, embedder produces %d; rebuild the index",
			index.ErrDimensionMismatch, idx.Dimension(), p.embedder.Dimension())
	}

	p.logger.Info("Loaded saved index", "chunks", idx.Len(), "dimension", idx.Dimension())
	return idx, nil, nil
}
