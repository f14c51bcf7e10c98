package corpus

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// JSONLDataset is a dataset held in a single JSON Lines file, one record
// per line. The file is read once, on first use.
type JSONLDataset struct {
	name string
	read func(ctx context.Context) ([]byte, error)

	mu      sync.Mutex
	records []Record
	loaded  bool
}

// NewJSONLDataset creates a dataset whose content comes from read.
func NewJSONLDataset(name string, read func(ctx context.Context) ([]byte, error)) *JSONLDataset {
	return &JSONLDataset{name: name, read: read}
}

// Name returns the identifier the dataset was opened with.
func (d *JSONLDataset) Name() string { return d.name }

// NumRows returns the number of lines in the file.
func (d *JSONLDataset) NumRows(ctx context.Context) (int, error) {
	records, err := d.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Rows returns up to limit records starting at offset.
func (d *JSONLDataset) Rows(ctx context.Context, offset, limit int) ([]Record, error) {
	records, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(records) {
		return nil, nil
	}
	return records[offset:min(offset+limit, len(records))], nil
}

func (d *JSONLDataset) load(ctx context.Context) ([]Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded {
		return d.records, nil
	}

	data, err := d.read(ctx)
	if err != nil {
		return nil, err
	}

	records, err := parseJSONL(data)
	if err != nil {
		return nil, err
	}

	d.records = records
	d.loaded = true
	return records, nil
}

func parseJSONL(data []byte) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(bytes.NewReader(data))
	// Abstracts run to a few KB; allow long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
