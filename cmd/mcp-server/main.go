// Package main provides the MCP server entry point for the cancer abstract
// question-answering pipeline.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mike-a-ellis/cancerlit-rag/internal/app"
	"github.com/mike-a-ellis/cancerlit-rag/internal/config"
	mcpserver "github.com/mike-a-ellis/cancerlit-rag/internal/mcp"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	// Logs go to stderr; stdout carries the stdio transport.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error(app.Describe(err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}
	port := getEnv("PORT", "8080")

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// The index is built or loaded once, before any request is served.
	idx, result, err := a.OpenIndex(ctx)
	if err != nil {
		return err
	}
	if result != nil {
		logger.Info("Built index", "documents", result.Documents, "chunks", result.Chunks)
	}

	server := mcpserver.NewServer(&mcpserver.Config{
		Pipeline: a.Pipeline(idx),
		Embedder: a.Embedder,
		Index:    idx,
		Store:    a.Store,
		Info: mcpserver.IndexInfo{
			Backend:        cfg.IndexBackend,
			EmbeddingModel: a.Embedder.Model(),
			ChatModel:      a.Generator.Model(),
			Datasets:       cfg.Datasets,
			TopK:           cfg.TopK,
		},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(a.Store))
	mux.Handle("/mcp", server.HTTPHandler(false))
	mux.HandleFunc("/", mcpserver.NewLandingHandler(mcpserver.LandingInfo{
		Chunks: idx.Len(),
		TopK:   cfg.TopK,
		URL:    getEnv("PUBLIC_URL", "http://localhost:"+port) + "/mcp",
	}))

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	// Check if running in server mode (HTTP) or stdio mode (local development)
	if getEnv("SERVER_MODE", "false") == "true" {
		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "mcp", "/mcp", "health", "/health")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	// Stdio mode also serves /health in the background for local testing.
	go func() {
		logger.Info("Starting health server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Health server error", "error", err)
		}
	}()

	logger.Info("Starting cancer literature MCP server (stdio mode)")
	return server.Run(ctx)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
