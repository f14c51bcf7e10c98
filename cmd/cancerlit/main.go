// Package main provides the cancerlit CLI: build the abstract index and ask
// questions against it.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/cancerlit-rag/internal/app"
	"github.com/mike-a-ellis/cancerlit-rag/internal/config"
	"github.com/mike-a-ellis/cancerlit-rag/internal/rag"
	"github.com/mike-a-ellis/cancerlit-rag/internal/render"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "cancerlit",
	Short:         "Question answering over PubMed cancer abstracts",
	Long:          "Builds a vector index over sampled breast and lung cancer PubMed abstracts and answers questions from it.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the abstract index",
	Long: `Fetches the configured datasets, samples and chunks the abstracts,
embeds every chunk and replaces the saved index.

Environment variables:
  GEMINI_API_KEY   API key for embeddings and answers (required)
  DATASETS         Comma-separated dataset identifiers
  INDEX_BACKEND    sqlite (default) or qdrant
  INDEX_DIR        Directory of the sqlite index (default: cancer_pubmed_db)
  QDRANT_HOST      Qdrant hostname (default: localhost)
  QDRANT_PORT      Qdrant gRPC port (default: 6334)`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question",
	Long:  "Answers a question from the saved index, building the index first if none exists.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long:  "Starts a conversation. Type a question per line; an empty line, \"exit\" or Ctrl-D ends the session.",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved index",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(buildCmd, askCmd, chatCmd, statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, app.Describe(err))
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setup loads and validates configuration before any client is created.
func setup() (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger()
	slog.SetDefault(logger)

	return app.New(cfg, logger)
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Building index from %s...\n", strings.Join(a.Config.Datasets, ", "))

	result, err := a.Rebuild(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Build complete!")
	fmt.Fprintf(out, "  Documents: %d\n", result.Documents)
	fmt.Fprintf(out, "  Chunks: %d\n", result.Chunks)
	fmt.Fprintf(out, "  Dimension: %d\n", result.Dimension)
	fmt.Fprintf(out, "  Duration: %s\n", result.Duration.Round(time.Second))
	return nil
}

func openPipeline(ctx context.Context, out io.Writer) (*app.App, *rag.Pipeline, error) {
	a, err := setup()
	if err != nil {
		return nil, nil, err
	}

	idx, result, err := a.OpenIndex(ctx)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	if result != nil {
		fmt.Fprintf(out, "Built index: %d chunks from %d abstracts.\n\n", result.Chunks, result.Documents)
	}

	return a, a.Pipeline(idx), nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	a, pipeline, err := openPipeline(cmd.Context(), out)
	if err != nil {
		return err
	}
	defer a.Close()

	result, _, err := pipeline.Ask(cmd.Context(), strings.Join(args, " "), nil)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, render.Answer(result.Answer, result.Sources()))
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	a, pipeline, err := openPipeline(cmd.Context(), out)
	if err != nil {
		return err
	}
	defer a.Close()

	return chat(cmd.Context(), pipeline, cmd.InOrStdin(), out)
}

// chat reads one question per line. A failed question is reported and the
// session continues; history only grows on success.
func chat(ctx context.Context, pipeline *rag.Pipeline, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Ask a question about cancer biology or genetics (e.g. What is a BRCA1 mutation?).")

	var history []rag.Turn
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" || question == "exit" || question == "quit" {
			return nil
		}

		result, next, err := pipeline.Ask(ctx, question, history)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			fmt.Fprintln(out, app.Describe(err))
			fmt.Fprintln(out)
			continue
		}
		history = next

		fmt.Fprintln(out, render.Answer(result.Answer, result.Sources()))
		fmt.Fprintln(out)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Backend: %s\n", a.Config.IndexBackend)
	switch a.Config.IndexBackend {
	case config.BackendQdrant:
		fmt.Fprintf(out, "Location: %s:%d/%s\n", a.Config.QdrantHost, a.Config.QdrantPort, a.Config.QdrantCollection)
	default:
		fmt.Fprintf(out, "Location: %s\n", a.Config.IndexDir)
	}
	fmt.Fprintf(out, "Embedding model: %s\n", a.Embedder.Model())
	fmt.Fprintf(out, "Chat model: %s\n", a.Generator.Model())

	exists, err := a.Store.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Fprintln(out, "Index: not built (run `cancerlit build`)")
		return nil
	}

	idx, err := a.Store.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Index: %d chunks, %d dimensions\n", idx.Len(), idx.Dimension())
	return nil
}
