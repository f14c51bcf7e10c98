package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/cancerlit-rag/internal/index"
	"github.com/mike-a-ellis/cancerlit-rag/internal/rag"
	"github.com/mike-a-ellis/cancerlit-rag/internal/render"
)

const (
	defaultSearchResults = index.DefaultK
	maxSearchResults     = 20
)

// makeAskHandler creates the ask_question tool handler. Each call is a
// fresh conversation; MCP clients keep their own history.
func makeAskHandler(pipeline QuestionAnswerer) func(
	context.Context, *mcp.CallToolRequest, AskQuestionInput,
) (*mcp.CallToolResult, AskQuestionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskQuestionInput) (
		*mcp.CallToolResult, AskQuestionOutput, error,
	) {
		result, _, err := pipeline.Ask(ctx, input.Question, nil)
		if err != nil {
			return nil, AskQuestionOutput{}, fmt.Errorf("failed to answer question: %w", err)
		}

		n := min(len(result.Hits), render.MaxSources)
		sources := make([]Source, 0, n)
		for _, hit := range result.Hits[:n] {
			sources = append(sources, Source{
				Title:      render.Title(hit.Chunk.SourceTitle),
				ChunkIndex: hit.Chunk.ChunkIndex,
				Score:      hit.Score,
			})
		}

		return nil, AskQuestionOutput{
			Answer:  result.Answer,
			Sources: sources,
		}, nil
	}
}

// makeSearchHandler creates the search_abstracts tool handler.
// Search flow:
// 1. Generate embedding for query text
// 2. Query the index for the nearest chunks
func makeSearchHandler(embedder rag.QueryEmbedder, idx index.Index) func(
	context.Context, *mcp.CallToolRequest, SearchAbstractsInput,
) (*mcp.CallToolResult, SearchAbstractsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchAbstractsInput) (
		*mcp.CallToolResult, SearchAbstractsOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = defaultSearchResults
		}
		maxResults = min(maxResults, maxSearchResults)

		vector, err := embedder.EmbedQuery(ctx, input.Query)
		if err != nil {
			return nil, SearchAbstractsOutput{}, fmt.Errorf("failed to embed query: %w", err)
		}

		hits, err := idx.Query(ctx, vector, maxResults)
		if err != nil {
			return nil, SearchAbstractsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(hits) == 0 {
			return nil, SearchAbstractsOutput{
				Results: []SearchResult{},
				Message: "No matching abstracts found. The index is empty.",
			}, nil
		}

		results := make([]SearchResult, len(hits))
		for i, hit := range hits {
			results[i] = SearchResult{
				Title:      render.Title(hit.Chunk.SourceTitle),
				Content:    hit.Chunk.Content,
				ChunkIndex: hit.Chunk.ChunkIndex,
				Score:      hit.Score,
			}
		}

		return nil, SearchAbstractsOutput{Results: results}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler. An unhealthy
// store is reported in the output, not as a tool error.
func makeStatusHandler(idx index.Index, store HealthChecker, info IndexInfo) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		datasets := info.Datasets
		if datasets == nil {
			datasets = []string{}
		}

		out := StatusOutput{
			Backend:        info.Backend,
			TotalChunks:    idx.Len(),
			Dimension:      idx.Dimension(),
			EmbeddingModel: info.EmbeddingModel,
			ChatModel:      info.ChatModel,
			Datasets:       datasets,
			TopK:           info.TopK,
			Healthy:        true,
		}

		if store != nil {
			if err := store.Health(ctx); err != nil {
				out.Healthy = false
				out.HealthError = err.Error()
			}
		}

		return nil, out, nil
	}
}
