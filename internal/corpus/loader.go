// Package corpus loads a reproducible sample of article abstracts from one or
// more named datasets.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// pageSize is how many rows are requested per Rows call.
const pageSize = 100

// Loader concatenates datasets, samples a fixed number of rows with a fixed
// seed, and drops rows missing an abstract or a title.
type Loader struct {
	datasets   []Dataset
	sampleSize int
	seed       uint64
	logger     *slog.Logger
}

// NewLoader creates a Loader over datasets in concatenation order.
func NewLoader(datasets []Dataset, sampleSize int, seed uint64, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		datasets:   datasets,
		sampleSize: sampleSize,
		seed:       seed,
		logger:     logger,
	}
}

// Load returns the sampled, filtered documents in sample order. Any dataset
// failure aborts the load with ErrFetch; no partial result is returned.
func (l *Loader) Load(ctx context.Context) ([]Document, error) {
	if len(l.datasets) == 0 {
		return nil, fmt.Errorf("%w: no datasets configured", ErrFetch)
	}

	// Row counts give each dataset its range within the concatenation.
	starts := make([]int, len(l.datasets))
	total := 0
	for i, ds := range l.datasets {
		n, err := ds.NumRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetch, ds.Name(), err)
		}
		starts[i] = total
		total += n
		l.logger.Debug("Dataset size", "dataset", ds.Name(), "rows", n)
	}

	indices := SampleIndices(total, l.sampleSize, l.seed)
	l.logger.Info("Sampling corpus", "total_rows", total, "sampled", len(indices))

	pages := make(map[pageKey][]Record)
	docs := make([]Document, 0, len(indices))
	dropped := 0

	for _, global := range indices {
		dsIdx := locate(starts, global)
		local := global - starts[dsIdx]

		rec, err := l.row(ctx, pages, dsIdx, local)
		if err != nil {
			return nil, err
		}

		if !rec.complete() {
			dropped++
			continue
		}
		docs = append(docs, Document{Abstract: rec.Abstract, Title: rec.Title})
	}

	l.logger.Info("Loaded corpus", "documents", len(docs), "dropped_incomplete", dropped)
	return docs, nil
}

type pageKey struct {
	dataset int
	start   int
}

// row fetches the page holding the local row once and serves later rows in
// the same page from memory.
func (l *Loader) row(ctx context.Context, pages map[pageKey][]Record, dsIdx, local int) (Record, error) {
	ds := l.datasets[dsIdx]
	key := pageKey{dataset: dsIdx, start: local - local%pageSize}

	page, ok := pages[key]
	if !ok {
		var err error
		page, err = ds.Rows(ctx, key.start, pageSize)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %s rows %d-%d: %v", ErrFetch, ds.Name(), key.start, key.start+pageSize, err)
		}
		pages[key] = page
	}

	offset := local - key.start
	if offset >= len(page) {
		return Record{}, fmt.Errorf("%w: %s: row %d missing from page", ErrFetch, ds.Name(), local)
	}
	return page[offset], nil
}

// SampleIndices picks n distinct indices from [0, total) using a PCG source
// seeded with seed; the same arguments always give the same slice. When n is
// at least total, every index is returned in order.
func SampleIndices(total, n int, seed uint64) []int {
	if total <= 0 {
		return nil
	}
	if n >= total {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all
	}

	r := rand.New(rand.NewPCG(seed, seed))
	return r.Perm(total)[:n]
}

// locate returns the dataset whose range contains the global index.
func locate(starts []int, global int) int {
	idx := 0
	for i, start := range starts {
		if global >= start {
			idx = i
		}
	}
	return idx
}
