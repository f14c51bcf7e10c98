package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDataset serves in-memory records and counts page fetches.
type countingDataset struct {
	name    string
	records []Record
	calls   int
	rowsErr error
	sizeErr error
}

func (d *countingDataset) Name() string { return d.name }

func (d *countingDataset) NumRows(ctx context.Context) (int, error) {
	if d.sizeErr != nil {
		return 0, d.sizeErr
	}
	return len(d.records), nil
}

func (d *countingDataset) Rows(ctx context.Context, offset, limit int) ([]Record, error) {
	d.calls++
	if d.rowsErr != nil {
		return nil, d.rowsErr
	}
	if offset >= len(d.records) {
		return nil, nil
	}
	return d.records[offset:min(offset+limit, len(d.records))], nil
}

func makeRecords(prefix string, n int) []Record {
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			Abstract: fmt.Sprintf("%s abstract %d", prefix, i),
			Title:    fmt.Sprintf("%s title %d", prefix, i),
		}
	}
	return records
}

func TestSampleIndices_Deterministic(t *testing.T) {
	a := SampleIndices(5000, 100, 42)
	b := SampleIndices(5000, 100, 42)
	c := SampleIndices(5000, 100, 43)

	assert.Equal(t, a, b, "same seed must give the same sample")
	assert.NotEqual(t, a, c, "different seeds should give different samples")
	assert.Len(t, a, 100)

	seen := make(map[int]bool)
	for _, idx := range a {
		assert.False(t, seen[idx], "duplicate index %d", idx)
		assert.True(t, idx >= 0 && idx < 5000)
		seen[idx] = true
	}
}

func TestSampleIndices_TakesAllWhenSmall(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, SampleIndices(3, 10, 42))
	assert.Nil(t, SampleIndices(0, 10, 42))
}

func TestLoader_ConcatenatesAndSamples(t *testing.T) {
	breast := &countingDataset{name: "breast", records: makeRecords("breast", 250)}
	lung := &countingDataset{name: "lung", records: makeRecords("lung", 150)}

	loader := NewLoader([]Dataset{breast, lung}, 50, 42, nil)
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 50)

	// Documents follow the sample order over the concatenation.
	indices := SampleIndices(400, 50, 42)
	for i, global := range indices {
		var want string
		if global < 250 {
			want = fmt.Sprintf("breast title %d", global)
		} else {
			want = fmt.Sprintf("lung title %d", global-250)
		}
		assert.Equal(t, want, docs[i].Title)
	}

	// Pages are fetched at most once each.
	assert.LessOrEqual(t, breast.calls, 3)
	assert.LessOrEqual(t, lung.calls, 2)
}

func TestLoader_Reproducible(t *testing.T) {
	newLoader := func() *Loader {
		return NewLoader([]Dataset{
			&countingDataset{name: "a", records: makeRecords("a", 300)},
			&countingDataset{name: "b", records: makeRecords("b", 300)},
		}, 20, 42, nil)
	}

	first, err := newLoader().Load(context.Background())
	require.NoError(t, err)
	second, err := newLoader().Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoader_DropsIncomplete(t *testing.T) {
	records := []Record{
		{Abstract: "complete abstract", Title: "complete"},
		{Abstract: "", Title: "no abstract"},
		{Abstract: "no title", Title: ""},
		{Abstract: "   ", Title: "blank abstract"},
		{Abstract: "second complete", Title: "complete 2"},
	}
	ds := &countingDataset{name: "mixed", records: records}

	docs, err := NewLoader([]Dataset{ds}, 10, 42, nil).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "complete", docs[0].Title)
	assert.Equal(t, "complete 2", docs[1].Title)
}

func TestLoader_FetchErrors(t *testing.T) {
	boom := errors.New("connection refused")

	t.Run("size failure", func(t *testing.T) {
		ds := &countingDataset{name: "broken", sizeErr: boom}
		_, err := NewLoader([]Dataset{ds}, 10, 42, nil).Load(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFetch)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("rows failure", func(t *testing.T) {
		ok := &countingDataset{name: "ok", records: makeRecords("ok", 10)}
		broken := &countingDataset{name: "broken", records: makeRecords("x", 10), rowsErr: boom}
		_, err := NewLoader([]Dataset{ok, broken}, 20, 42, nil).Load(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFetch)
	})

	t.Run("no datasets", func(t *testing.T) {
		_, err := NewLoader(nil, 10, 42, nil).Load(context.Background())
		assert.ErrorIs(t, err, ErrFetch)
	})
}

func TestLoader_EmptyDatasetInMiddle(t *testing.T) {
	a := &countingDataset{name: "a", records: makeRecords("a", 2)}
	empty := &countingDataset{name: "empty"}
	b := &countingDataset{name: "b", records: makeRecords("b", 2)}

	docs, err := NewLoader([]Dataset{a, empty, b}, 10, 42, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.True(t, strings.HasPrefix(docs[2].Title, "b "))
	assert.Equal(t, 0, empty.calls)
}

func TestResolver_Open(t *testing.T) {
	r := &Resolver{}

	ds, err := r.Open("hf:Gaborandi/breast_cancer_pubmed_abstracts")
	require.NoError(t, err)
	assert.Equal(t, "hf:Gaborandi/breast_cancer_pubmed_abstracts:train", ds.Name())

	ds, err = r.Open("Gaborandi/Lung_Cancer_pubmed_abstracts:test")
	require.NoError(t, err)
	assert.Equal(t, "hf:Gaborandi/Lung_Cancer_pubmed_abstracts:test", ds.Name())

	_, err = r.Open("s3:bucket/key")
	assert.ErrorIs(t, err, ErrFetch)

	_, err = r.Open("hf:no-owner")
	assert.ErrorIs(t, err, ErrFetch)

	_, err = r.Open("github:octo/data/pubmed.jsonl")
	assert.ErrorIs(t, err, ErrFetch, "github scheme needs a fetcher")
}

type fakeFetcher struct {
	files map[string]string
}

func (f *fakeFetcher) FetchFile(ctx context.Context, owner, repo, path string) ([]byte, error) {
	content, ok := f.files[owner+"/"+repo+"/"+path]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return []byte(content), nil
}

func TestResolver_GitHubJSONL(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string]string{
		"octo/data/pubmed/lung.jsonl": `{"abstract":"EGFR mutations in NSCLC","title":"EGFR"}
{"abstract":"KRAS G12C inhibitors","title":"KRAS"}

{"abstract":null,"title":"missing"}
`,
	}}
	r := &Resolver{GitHub: fetcher}

	ds, err := r.Open("github:octo/data/pubmed/lung.jsonl")
	require.NoError(t, err)

	docs, err := NewLoader([]Dataset{ds}, 10, 42, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "EGFR", docs[0].Title)
	assert.Equal(t, "KRAS", docs[1].Title)

	missing, err := r.Open("github:octo/data/absent.jsonl")
	require.NoError(t, err)
	_, err = NewLoader([]Dataset{missing}, 10, 42, nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
}
