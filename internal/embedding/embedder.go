// Package embedding turns abstract chunks and questions into vectors through
// an external embedding model.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"golang.org/x/time/rate"
)

const (
	// DefaultModel is the embedding model used at index time and query time.
	DefaultModel = "text-embedding-004"

	// DefaultDimension is the vector size of text-embedding-004.
	DefaultDimension = 768

	// DefaultBatchSize is the number of texts sent per request.
	DefaultBatchSize = 100
)

// Embedder generates embeddings with a fixed model. Index and queries must
// share one Embedder configuration or similarity scores are meaningless.
type Embedder struct {
	client    *Client
	model     string
	dimension int
	batchSize int
	timeout   time.Duration
	limiter   *rate.Limiter
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithBatchSize sets how many texts go into one request. Non-positive values
// keep DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithRequestsPerMinute paces batch requests. Zero means unpaced.
func WithRequestsPerMinute(rpm int) Option {
	return func(e *Embedder) {
		if rpm > 0 {
			e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
		}
	}
}

// WithTimeout bounds each embedding request. Zero means no bound beyond
// the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(e *Embedder) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEmbedder creates an Embedder for model producing vectors of dimension.
func NewEmbedder(client *Client, model string, dimension int, opts ...Option) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	e := &Embedder{
		client:    client,
		model:     model,
		dimension: dimension,
		batchSize: DefaultBatchSize,
		limiter:   rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

// Dimension returns the vector size this Embedder produces.
func (e *Embedder) Dimension() int { return e.dimension }

// EmbedQuery embeds a single question. Empty text fails with ErrEmptyText
// before any request is sent.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	vectors, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds texts in batches, preserving input order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		embeddings, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

// embedBatch sends one request. Every failure is reported as ErrService and
// nothing is retried.
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrService, err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrService, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrService, len(resp.Data), len(texts))
	}

	// The response carries each vector's input position.
	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(texts) || embeddings[idx] != nil {
			return nil, fmt.Errorf("%w: invalid embedding index %d", ErrService, data.Index)
		}
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("%w: model returned %d dimensions, expected %d",
				ErrService, len(data.Embedding), e.dimension)
		}
		embeddings[idx] = toFloat32(data.Embedding)
	}

	return embeddings, nil
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but the index stores float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
