package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultHFBaseURL is the public HuggingFace datasets-server.
	DefaultHFBaseURL = "https://datasets-server.huggingface.co"

	// hfPageSize is the largest page the /rows endpoint serves.
	hfPageSize = 100

	hfConfig = "default"
)

// HuggingFaceDataset reads a dataset split through the datasets-server REST
// API, so no parquet download or local cache is needed.
type HuggingFaceDataset struct {
	client  *http.Client
	baseURL string
	name    string
	split   string

	mu      sync.Mutex
	numRows int // cached after the first NumRows call; -1 until then
}

// NewHuggingFaceDataset creates a dataset for name (owner/dataset) and split.
// A nil client gets a 60 second timeout; an empty baseURL uses
// DefaultHFBaseURL.
func NewHuggingFaceDataset(client *http.Client, baseURL, name, split string) *HuggingFaceDataset {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultHFBaseURL
	}
	return &HuggingFaceDataset{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		name:    name,
		split:   split,
		numRows: -1,
	}
}

// Name returns the identifier in hf:<name>:<split> form.
func (d *HuggingFaceDataset) Name() string {
	return "hf:" + d.name + ":" + d.split
}

type hfSizeResponse struct {
	Size struct {
		Splits []struct {
			Config  string `json:"config"`
			Split   string `json:"split"`
			NumRows int    `json:"num_rows"`
		} `json:"splits"`
	} `json:"size"`
}

type hfRowsResponse struct {
	Rows []struct {
		RowIdx int `json:"row_idx"`
		Row    struct {
			Abstract *string `json:"abstract"`
			Title    *string `json:"title"`
		} `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// NumRows returns the row count of the split.
func (d *HuggingFaceDataset) NumRows(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.numRows >= 0 {
		return d.numRows, nil
	}

	var resp hfSizeResponse
	if err := d.get(ctx, "/size", url.Values{"dataset": {d.name}}, &resp); err != nil {
		return 0, err
	}

	for _, s := range resp.Size.Splits {
		if s.Config == hfConfig && s.Split == d.split {
			d.numRows = s.NumRows
			return s.NumRows, nil
		}
	}
	return 0, fmt.Errorf("split %q not found in %s", d.split, d.name)
}

// Rows returns up to limit rows starting at offset. limit is capped at the
// datasets-server page size.
func (d *HuggingFaceDataset) Rows(ctx context.Context, offset, limit int) ([]Record, error) {
	limit = min(limit, hfPageSize)

	var resp hfRowsResponse
	params := url.Values{
		"dataset": {d.name},
		"config":  {hfConfig},
		"split":   {d.split},
		"offset":  {strconv.Itoa(offset)},
		"length":  {strconv.Itoa(limit)},
	}
	if err := d.get(ctx, "/rows", params, &resp); err != nil {
		return nil, err
	}

	records := make([]Record, len(resp.Rows))
	for i, row := range resp.Rows {
		if row.Row.Abstract != nil {
			records[i].Abstract = *row.Row.Abstract
		}
		if row.Row.Title != nil {
			records[i].Title = *row.Row.Title
		}
	}
	return records, nil
}

func (d *HuggingFaceDataset) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := d.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
