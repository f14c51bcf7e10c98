// Package index stores chunk embeddings and answers nearest-neighbour
// queries by cosine similarity.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/mike-a-ellis/cancerlit-rag/internal/chunker"
)

// DefaultK is the number of chunks retrieved per question.
const DefaultK = 3

// Hit is a retrieved chunk with its similarity to the query.
type Hit struct {
	Chunk chunker.Chunk
	Score float64
}

// Entry pairs a chunk with its embedding.
type Entry struct {
	Chunk  chunker.Chunk
	Vector []float32
}

// Index is a read-only, queryable collection of embedded chunks. It is safe
// for concurrent queries once built or loaded.
type Index interface {
	// Query returns the min(k, Len()) most similar chunks, best first. Equal
	// scores keep insertion order.
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Len() int
	Dimension() int
}

// Store persists an index between runs.
type Store interface {
	// Exists reports whether a complete index has been saved.
	Exists(ctx context.Context) (bool, error)
	// Load returns the saved index, or ErrNotFound.
	Load(ctx context.Context) (Index, error)
	// Save replaces any saved index with idx. A failed Save leaves no
	// loadable partial index behind.
	Save(ctx context.Context, idx *Flat) error
	Health(ctx context.Context) error
	Close() error
}

// Flat is an exact, in-memory index. Queries scan every entry.
type Flat struct {
	entries   []Entry
	dimension int
}

// Build associates chunks[i] with embeddings[i]. Every embedding must have
// the same, non-zero length.
func Build(chunks []chunker.Chunk, embeddings [][]float32) (*Flat, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d chunks, %d embeddings", ErrLengthMismatch, len(chunks), len(embeddings))
	}

	f := &Flat{entries: make([]Entry, len(chunks))}
	for i, chunk := range chunks {
		vec := embeddings[i]
		if i == 0 {
			f.dimension = len(vec)
		}
		if len(vec) == 0 || len(vec) != f.dimension {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(vec), f.dimension)
		}
		f.entries[i] = Entry{Chunk: chunk, Vector: vec}
	}

	return f, nil
}

// Entries returns the entries in insertion order. Callers must not modify
// them.
func (f *Flat) Entries() []Entry { return f.entries }

// Len returns the number of entries.
func (f *Flat) Len() int { return len(f.entries) }

// Dimension returns the embedding size, or 0 for an empty index.
func (f *Flat) Dimension() int { return f.dimension }

// Query implements Index.
func (f *Flat) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidK, k)
	}
	if len(f.entries) == 0 {
		return []Hit{}, nil
	}
	if len(vector) != f.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), f.dimension)
	}

	hits := make([]Hit, len(f.entries))
	for i, entry := range f.entries {
		hits[i] = Hit{Chunk: entry.Chunk, Score: CosineSimilarity(vector, entry.Vector)}
	}

	SortHits(hits)

	return hits[:min(k, len(hits))], nil
}

// SortHits orders hits by descending score; the sort is stable so ties keep
// their current order.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either is a zero vector or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
