package answer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/cancerlit-rag/internal/chunker"
)

type chatRequest struct {
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(url string) *openai.Client {
	client := openai.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(url+"/"),
		option.WithMaxRetries(0),
	)
	return &client
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestAnswer(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("  BRCA1 is a tumour suppressor gene.\n"))
	}))
	defer srv.Close()

	g := NewGenerator(newTestClient(srv.URL), "", nil)
	chunks := []chunker.Chunk{
		{Content: "BRCA1 encodes a DNA repair protein.", SourceTitle: "A"},
		{Content: "Germline BRCA1 mutations raise breast cancer risk.", SourceTitle: "B"},
	}

	text, err := g.Answer(context.Background(), "What is BRCA1?", chunks)
	require.NoError(t, err)
	assert.Equal(t, "  BRCA1 is a tumour suppressor gene.\n", text, "output returned unmodified")

	assert.Equal(t, DefaultModel, got.Model)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.0, *got.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, BuildPrompt("What is BRCA1?", chunks), got.Messages[0].Content)
}

func TestAnswer_ServiceErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"backend unavailable","type":"server_error"}}`))
	}))
	defer srv.Close()

	g := NewGenerator(newTestClient(srv.URL), "", nil)
	_, err := g.Answer(context.Background(), "q", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnswer_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := completion("")
		resp["choices"] = []map[string]any{}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := NewGenerator(newTestClient(srv.URL), "", nil)
	_, err := g.Answer(context.Background(), "q", nil)
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestBuildPrompt_KeepsRetrievalOrder(t *testing.T) {
	prompt := BuildPrompt("Which gene?", []chunker.Chunk{
		{Content: "first chunk"},
		{Content: "second chunk"},
		{Content: "third chunk"},
	})

	first := strings.Index(prompt, "first chunk")
	second := strings.Index(prompt, "second chunk")
	third := strings.Index(prompt, "third chunk")
	question := strings.Index(prompt, "Question: Which gene?")

	assert.True(t, first >= 0 && first < second && second < third && third < question)
	assert.Contains(t, prompt, "first chunk\n\nsecond chunk\n\nthird chunk")
}

func TestAnswer_CancelKeepsCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGenerator(newTestClient(srv.URL), "", nil)
	_, err := g.Answer(ctx, "What does HER2 amplification predict?", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, context.Canceled)
}
