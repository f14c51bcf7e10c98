// Package answer synthesizes answers from retrieved abstract chunks with a
// chat completion model.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/mike-a-ellis/cancerlit-rag/internal/chunker"
)

// DefaultModel is the chat model used for answers.
const DefaultModel = "gemini-2.5-flash"

const promptTemplate = `Use the following pieces of context from biomedical abstracts to answer the question at the end. If the context does not contain the answer, say that you don't know instead of making one up.

%s

Question: %s
Helpful Answer:`

// Generator produces answers grounded in retrieved chunks.
type Generator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewGenerator creates a generator for the given model. An empty model
// selects DefaultModel.
func NewGenerator(client *openai.Client, model string, logger *slog.Logger) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client: client,
		model:  model,
		logger: logger,
	}
}

// Model returns the chat model name.
func (g *Generator) Model() string { return g.model }

// Answer asks the model to answer question from the chunks, in the order
// given, at temperature zero. The model's text is returned unmodified.
func (g *Generator) Answer(ctx context.Context, question string, chunks []chunker.Chunk) (string, error) {
	prompt := BuildPrompt(question, chunks)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrGeneration)
	}

	g.logger.Debug("Answer generated",
		"model", g.model,
		"context_chunks", len(chunks),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}

// BuildPrompt stuffs every chunk's content, separated by blank lines, into
// the prompt ahead of the question.
func BuildPrompt(question string, chunks []chunker.Chunk) string {
	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}
	return fmt.Sprintf(promptTemplate, strings.Join(contents, "\n\n"), question)
}
