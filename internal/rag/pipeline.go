// Package rag answers questions over the abstract index: embed the
// question, retrieve the nearest chunks, then synthesize an answer.
package rag

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/mike-a-ellis/cancerlit-rag/internal/chunker"
	"github.com/mike-a-ellis/cancerlit-rag/internal/index"
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// QueryEmbedder embeds a question with the model used to build the index.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever returns the k nearest chunks to a vector.
type Retriever interface {
	Query(ctx context.Context, vector []float32, k int) ([]index.Hit, error)
}

// Synthesizer answers a question from context chunks.
type Synthesizer interface {
	Answer(ctx context.Context, question string, chunks []chunker.Chunk) (string, error)
}

// Role identifies the speaker of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    Role
	Content string
	Sources []string
}

// Result is the outcome of one question.
type Result struct {
	Answer string
	Hits   []index.Hit
}

// Chunks returns the retrieved chunks, best first.
func (r *Result) Chunks() []chunker.Chunk {
	chunks := make([]chunker.Chunk, len(r.Hits))
	for i, h := range r.Hits {
		chunks[i] = h.Chunk
	}
	return chunks
}

// Sources returns the source titles of the retrieved chunks, best first.
func (r *Result) Sources() []string {
	titles := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		titles[i] = h.Chunk.SourceTitle
	}
	return titles
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK sets the number of chunks retrieved per question.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithTimeout bounds each external call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// WithObserver registers a callback for state changes.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline is an immutable handle built once at startup. Ask may be called
// from many goroutines; each call runs its own state machine.
type Pipeline struct {
	embedder    QueryEmbedder
	retriever   Retriever
	synthesizer Synthesizer
	topK        int
	timeout     time.Duration
	observer    Observer
	logger      *slog.Logger
}

// New creates a pipeline over the given collaborators.
func New(embedder QueryEmbedder, retriever Retriever, synthesizer Synthesizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:    embedder,
		retriever:   retriever,
		synthesizer: synthesizer,
		topK:        index.DefaultK,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TopK returns the number of chunks retrieved per question.
func (p *Pipeline) TopK() int { return p.topK }

// Ask answers question. history is not modified; the returned history is a
// new slice with the question and answer appended. Collaborator errors are
// returned unchanged and no partial result is produced.
func (p *Pipeline) Ask(ctx context.Context, question string, history []Turn) (*Result, []Turn, error) {
	if strings.TrimSpace(question) == "" {
		return nil, nil, ErrEmptyQuestion
	}

	run := &run{pipeline: p, state: StateIdle}
	start := time.Now()

	run.to(StateEmbedding)
	vector, err := call(ctx, p.timeout, func(ctx context.Context) ([]float32, error) {
		return p.embedder.EmbedQuery(ctx, question)
	})
	if err != nil {
		return nil, nil, run.fail(err)
	}

	run.to(StateRetrieving)
	hits, err := call(ctx, p.timeout, func(ctx context.Context) ([]index.Hit, error) {
		return p.retriever.Query(ctx, vector, p.topK)
	})
	if err != nil {
		return nil, nil, run.fail(err)
	}

	result := &Result{Hits: hits}

	run.to(StateSynthesizing)
	answer, err := call(ctx, p.timeout, func(ctx context.Context) (string, error) {
		return p.synthesizer.Answer(ctx, question, result.Chunks())
	})
	if err != nil {
		return nil, nil, run.fail(err)
	}
	result.Answer = answer

	run.to(StateDone)
	p.logger.Debug("Question answered", "chunks", len(hits), "duration", time.Since(start))

	next := slices.Clip(slices.Clone(history))
	next = append(next,
		Turn{Role: RoleUser, Content: question},
		Turn{Role: RoleAssistant, Content: answer, Sources: result.Sources()},
	)
	return result, next, nil
}

// run tracks the state of a single Ask.
type run struct {
	pipeline *Pipeline
	state    State
}

func (r *run) to(next State) {
	prev := r.state
	r.state = next
	if r.pipeline.observer != nil {
		r.pipeline.observer(prev, next)
	}
}

func (r *run) fail(err error) error {
	r.pipeline.logger.Warn("Question failed", "state", r.state.String(), "error", err)
	r.to(StateFailed)
	return err
}

// call runs fn under a per-call timeout when one is set.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}
