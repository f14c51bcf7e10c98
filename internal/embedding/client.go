package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mike-a-ellis/cancerlit-rag/internal/config"
)

// Client wraps the OpenAI client for embedding generation. It talks to any
// OpenAI-compatible endpoint; by default that is Gemini's.
type Client struct {
	client *openai.Client
}

// NewClient creates a client authenticated with apiKey against baseURL.
// Built-in retries are disabled: a failed call fails the request.
func NewClient(apiKey, baseURL string, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: embedding client needs an API key", config.ErrMissingCredential)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	client := openai.NewClient(reqOpts...)

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., answer generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
