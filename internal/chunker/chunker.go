// Package chunker splits abstracts into fixed-size overlapping text windows.
package chunker

import (
	"fmt"
	"strings"

	"github.com/mike-a-ellis/cancerlit-rag/internal/corpus"
)

const (
	// DefaultChunkSize is the window length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared by adjacent windows.
	DefaultChunkOverlap = 150
)

// Chunk is a bounded window of an abstract that carries its document's title.
type Chunk struct {
	Content     string // Window text, verbatim from the abstract
	SourceTitle string // Title of the originating document
	ChunkIndex  int    // Position within the document (0, 1, 2...)
}

// Chunker splits documents into windows of at most chunkSize characters,
// each window after the first starting chunkSize-overlap characters after
// the previous one.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the window length in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between adjacent windows in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a Chunker. It rejects a non-positive size and an overlap
// outside [0, size).
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", c.chunkSize)
	}
	if c.overlap < 0 || c.overlap >= c.chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", c.chunkSize, c.overlap)
	}

	return c, nil
}

// ChunkSize returns the configured window length.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// ChunkDocument splits one document's abstract. An empty abstract yields no
// chunks; an abstract no longer than the chunk size yields exactly one.
func (c *Chunker) ChunkDocument(doc corpus.Document) []Chunk {
	// Work in runes so a window never splits a multi-byte character.
	runes := []rune(doc.Abstract)
	if len(runes) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	chunks := make([]Chunk, 0, len(runes)/step+1)

	for start := 0; ; start += step {
		end := min(start+c.chunkSize, len(runes))
		chunks = append(chunks, Chunk{
			Content:     string(runes[start:end]),
			SourceTitle: doc.Title,
			ChunkIndex:  len(chunks),
		})
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// ChunkDocuments splits every document, keeping document order.
func (c *Chunker) ChunkDocuments(docs []corpus.Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.ChunkDocument(doc)...)
	}
	return chunks
}

// Reconstruct reverses ChunkDocument for the chunks of a single document,
// dropping the leading overlap of every window after the first.
func Reconstruct(chunks []Chunk, overlap int) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			b.WriteString(chunk.Content)
			continue
		}
		runes := []rune(chunk.Content)
		if overlap < len(runes) {
			b.WriteString(string(runes[overlap:]))
		}
	}
	return b.String()
}
