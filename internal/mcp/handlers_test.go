package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/cancerlit-rag/internal/chunker"
	"github.com/mike-a-ellis/cancerlit-rag/internal/index"
	"github.com/mike-a-ellis/cancerlit-rag/internal/rag"
)

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.Contains(text, "BRCA1") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

type fakeSynth struct{}

func (fakeSynth) Answer(ctx context.Context, question string, chunks []chunker.Chunk) (string, error) {
	return "answer from " + chunks[0].SourceTitle, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(ctx context.Context) error { return f.err }

func testIndex(t *testing.T) *index.Flat {
	chunks := []chunker.Chunk{
		{Content: "BRCA1 carriers", SourceTitle: "BRCA1 study"},
		{Content: "Smoking and lung cancer", SourceTitle: strings.Repeat("L", 200)},
		{Content: "Radon exposure", SourceTitle: ""},
		{Content: "EGFR inhibitors", SourceTitle: "EGFR trial"},
	}
	vectors := [][]float32{{1, 0}, {0, 1}, {0.2, 0.9}, {0.7, 0.7}}
	idx, err := index.Build(chunks, vectors)
	require.NoError(t, err)
	return idx
}

func TestAskHandler(t *testing.T) {
	idx := testIndex(t)
	pipeline := rag.New(fakeEmbedder{}, idx, fakeSynth{}, rag.WithTopK(4))
	handler := makeAskHandler(pipeline)

	_, out, err := handler(context.Background(), nil, AskQuestionInput{Question: "What does BRCA1 do?"})
	require.NoError(t, err)
	assert.Equal(t, "answer from BRCA1 study", out.Answer)
	require.Len(t, out.Sources, 3, "at most three sources")
	assert.Equal(t, "BRCA1 study", out.Sources[0].Title)
	assert.GreaterOrEqual(t, out.Sources[0].Score, out.Sources[1].Score)
}

func TestAskHandler_EmptyQuestion(t *testing.T) {
	pipeline := rag.New(fakeEmbedder{}, testIndex(t), fakeSynth{})
	_, _, err := makeAskHandler(pipeline)(context.Background(), nil, AskQuestionInput{Question: " "})
	assert.ErrorIs(t, err, rag.ErrEmptyQuestion)
}

func TestSearchHandler(t *testing.T) {
	handler := makeSearchHandler(fakeEmbedder{}, testIndex(t))

	_, out, err := handler(context.Background(), nil, SearchAbstractsInput{Query: "lung cancer"})
	require.NoError(t, err)
	require.Len(t, out.Results, index.DefaultK)
	assert.Equal(t, "Smoking and lung cancer", out.Results[0].Content)
	assert.Equal(t, strings.Repeat("L", 150)+"...", out.Results[0].Title)
	assert.Equal(t, "Untitled", out.Results[1].Title)

	_, out, err = handler(context.Background(), nil, SearchAbstractsInput{Query: "lung", MaxResults: 100})
	require.NoError(t, err)
	assert.Len(t, out.Results, 4)
}

func TestSearchHandler_EmptyIndex(t *testing.T) {
	empty, err := index.Build(nil, nil)
	require.NoError(t, err)

	_, out, err := makeSearchHandler(fakeEmbedder{}, empty)(context.Background(), nil, SearchAbstractsInput{Query: "x"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	assert.NotEmpty(t, out.Message)
}

func TestSearchHandler_EmbeddingError(t *testing.T) {
	boom := errors.New("quota")
	_, _, err := makeSearchHandler(fakeEmbedder{err: boom}, testIndex(t))(context.Background(), nil, SearchAbstractsInput{Query: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestStatusHandler(t *testing.T) {
	info := IndexInfo{Backend: "sqlite", EmbeddingModel: "text-embedding-004", TopK: 3}

	_, out, err := makeStatusHandler(testIndex(t), fakeHealth{}, info)(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.True(t, out.Healthy)
	assert.Equal(t, 4, out.TotalChunks)
	assert.Equal(t, 2, out.Dimension)
	assert.Equal(t, []string{}, out.Datasets)

	_, out, err = makeStatusHandler(testIndex(t), fakeHealth{err: index.ErrNotFound}, info)(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.False(t, out.Healthy)
	assert.Contains(t, out.HealthError, "not found")
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStatus string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"unhealthy", index.ErrNotFound, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(fakeHealth{err: tt.err})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.NotEmpty(t, resp.Timestamp)
		})
	}
}

func TestLandingHandler(t *testing.T) {
	handler := NewLandingHandler(LandingInfo{Chunks: 1234, TopK: 3, URL: "http://localhost:8080/mcp"})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1234 chunks")

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
