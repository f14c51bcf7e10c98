package corpus

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Dataset is a named, row-addressable table of records.
type Dataset interface {
	Name() string
	NumRows(ctx context.Context) (int, error)
	// Rows returns up to limit records starting at offset.
	Rows(ctx context.Context, offset, limit int) ([]Record, error)
}

// FileFetcher reads a file out of a GitHub repository.
type FileFetcher interface {
	FetchFile(ctx context.Context, owner, repo, path string) ([]byte, error)
}

// Resolver turns dataset identifiers into Datasets.
//
//	hf:<owner>/<name>[:<split>]        HuggingFace datasets-server
//	github:<owner>/<repo>/<path>.jsonl JSON Lines file in a GitHub repo
//
// An identifier without a scheme is treated as hf:.
type Resolver struct {
	HTTPClient *http.Client
	HFBaseURL  string
	GitHub     FileFetcher
}

// Open resolves a single identifier. Unknown schemes and malformed
// identifiers fail with ErrFetch.
func (r *Resolver) Open(id string) (Dataset, error) {
	scheme, rest, found := strings.Cut(id, ":")
	if !found || strings.Contains(scheme, "/") {
		scheme, rest = "hf", id
	}

	switch scheme {
	case "hf":
		name, split, _ := strings.Cut(rest, ":")
		if strings.Count(name, "/") != 1 {
			return nil, fmt.Errorf("%w: invalid HuggingFace dataset %q", ErrFetch, id)
		}
		if split == "" {
			split = "train"
		}
		return NewHuggingFaceDataset(r.HTTPClient, r.HFBaseURL, name, split), nil

	case "github":
		if r.GitHub == nil {
			return nil, fmt.Errorf("%w: no GitHub client configured for %q", ErrFetch, id)
		}
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("%w: invalid GitHub dataset %q", ErrFetch, id)
		}
		return NewJSONLDataset(id, func(ctx context.Context) ([]byte, error) {
			return r.GitHub.FetchFile(ctx, parts[0], parts[1], parts[2])
		}), nil

	default:
		return nil, fmt.Errorf("%w: unknown dataset scheme %q in %q", ErrFetch, scheme, id)
	}
}

// OpenAll resolves every identifier, failing on the first bad one.
func (r *Resolver) OpenAll(ids []string) ([]Dataset, error) {
	datasets := make([]Dataset, 0, len(ids))
	for _, id := range ids {
		ds, err := r.Open(id)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}
