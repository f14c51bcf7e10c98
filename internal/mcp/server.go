package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/cancerlit-rag/internal/index"
	"github.com/mike-a-ellis/cancerlit-rag/internal/rag"
)

// QuestionAnswerer runs one question through the pipeline.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, history []rag.Turn) (*rag.Result, []rag.Turn, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Pipeline QuestionAnswerer
	Embedder rag.QueryEmbedder
	Index    index.Index
	Store    HealthChecker
	Info     IndexInfo
}

// IndexInfo is static configuration reported by get_index_status.
type IndexInfo struct {
	Backend        string
	EmbeddingModel string
	ChatModel      string
	Datasets       []string
	TopK           int
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "cancerlit-rag",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question about cancer biology or genetics from indexed PubMed abstracts. Returns the answer and up to 3 source titles.",
	}, makeAskHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_abstracts",
		Description: "Semantic search over indexed PubMed abstract chunks. Returns matching chunks with titles and similarity scores.",
	}, makeSearchHandler(cfg.Embedder, cfg.Index))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current status of the abstract index including chunk count, embedding model and store health.",
	}, makeStatusHandler(cfg.Index, cfg.Store, cfg.Info))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the MCP server over Streamable HTTP. Stateless
// disables session management.
func (s *Server) HTTPHandler(stateless bool) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{Stateless: stateless})
}
