// Package github fetches dataset files hosted in GitHub repositories.
package github

import (
	"context"
	"fmt"
	"io"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Fetcher reads raw files through the GitHub contents API.
type Fetcher struct {
	client *github.Client
}

// NewFetcher creates a fetcher whose client waits out primary and secondary
// rate limits. An empty token gives unauthenticated access (60 req/hour),
// enough for the few dataset files a build reads.
func NewFetcher(token string) (*Fetcher, error) {
	rateLimited, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, fmt.Errorf("create rate-limited transport: %w", err)
	}

	client := github.NewClient(rateLimited)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return newFetcher(client), nil
}

func newFetcher(client *github.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchFile returns the content of a file at the default branch head.
// Files over 1 MB come back from the contents endpoint without a body, so
// those are streamed through the download URL instead.
func (f *Fetcher) FetchFile(ctx context.Context, owner, repo, filePath string) ([]byte, error) {
	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, owner, repo, filePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s/%s/%s: %w", owner, repo, filePath, err)
	}

	if fileContent == nil {
		return nil, fmt.Errorf("%s/%s/%s is a directory, not a file", owner, repo, filePath)
	}

	if fileContent.GetEncoding() == "none" {
		return f.download(ctx, owner, repo, filePath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", filePath, err)
	}

	return []byte(content), nil
}

func (f *Fetcher) download(ctx context.Context, owner, repo, filePath string) ([]byte, error) {
	rc, _, err := f.client.Repositories.DownloadContents(ctx, owner, repo, filePath, &github.RepositoryContentGetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s/%s/%s: %w", owner, repo, filePath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return data, nil
}
