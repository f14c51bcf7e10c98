// Package storage provides a Qdrant-backed vector index store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/mike-a-ellis/cancerlit-rag/internal/chunker"
	"github.com/mike-a-ellis/cancerlit-rag/internal/index"
)

// pointNamespace seeds deterministic point IDs so a rebuild overwrites the
// same points.
var pointNamespace = uuid.MustParse("5b0c1f6e-4f4a-4c43-9a3e-2d6f7f0a1c11")

// QdrantStore wraps the Qdrant client with connection management and health checks.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

var _ index.Store = (*QdrantStore)(nil)

// NewQdrantStore creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStore(host string, port int, collection string, logger *slog.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{
		client:     client,
		collection: collection,
		logger:     logger,
	}

	ctx := context.Background()
	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Exists reports whether the collection holds a manifest from a completed save.
func (s *QdrantStore) Exists(ctx context.Context) (bool, error) {
	_, err := s.manifest(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, index.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Save replaces the collection with idx. Chunks are upserted in batches of
// 100 and the manifest goes last; on failure the collection is dropped so
// no partial index can be loaded.
func (s *QdrantStore) Save(ctx context.Context, idx *index.Flat) (err error) {
	if err := s.dropCollection(ctx); err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if dropErr := s.dropCollection(context.WithoutCancel(ctx)); dropErr != nil {
				s.logger.Warn("Failed to drop partial collection", "collection", s.collection, "error", dropErr)
			}
		}
	}()

	if err := s.createCollection(ctx, idx.Dimension()); err != nil {
		return err
	}

	entries := idx.Entries()
	for i := 0; i < len(entries); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(entries))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for seq := i; seq < end; seq++ {
			entry := entries[seq]
			points = append(points, &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(chunkPointID(seq)),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					vectorName: qdrant.NewVector(entry.Vector...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					fieldType:        pointTypeChunk,
					fieldSeq:         seq,
					fieldContent:     entry.Chunk.Content,
					fieldSourceTitle: entry.Chunk.SourceTitle,
					fieldChunkIndex:  entry.Chunk.ChunkIndex,
				}),
			})
		}

		if err := s.upsert(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	manifest := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(manifestPointID()),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
		Payload: qdrant.NewValueMap(map[string]any{
			fieldType:      pointTypeManifest,
			fieldDimension: idx.Dimension(),
			fieldCount:     idx.Len(),
			fieldBuiltAt:   time.Now().UTC().Format(time.RFC3339),
		}),
	}
	if err := s.upsert(ctx, []*qdrant.PointStruct{manifest}); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	s.logger.Info("Index saved", "collection", s.collection, "chunks", idx.Len(), "dimension", idx.Dimension())
	return nil
}

// Load returns an index that queries the collection directly.
func (s *QdrantStore) Load(ctx context.Context) (index.Index, error) {
	m, err := s.manifest(ctx)
	if err != nil {
		return nil, err
	}
	return &qdrantIndex{store: s, dimension: m.Dimension, count: m.Count}, nil
}

// Manifest returns the manifest of the saved index, or index.ErrNotFound.
func (s *QdrantStore) Manifest(ctx context.Context) (*Manifest, error) {
	return s.manifest(ctx)
}

func (s *QdrantStore) manifest(ctx context.Context) (*Manifest, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: collection %s", index.ErrNotFound, s.collection)
	}

	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(manifestPointID())},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: collection %s has no manifest", index.ErrNotFound, s.collection)
	}

	payload := result[0].Payload
	if payload[fieldType].GetStringValue() != pointTypeManifest {
		return nil, ErrManifestInvalid
	}

	m := &Manifest{
		Dimension: int(payload[fieldDimension].GetIntegerValue()),
		Count:     int(payload[fieldCount].GetIntegerValue()),
		BuiltAt:   payload[fieldBuiltAt].GetStringValue(),
	}
	if m.Count < 0 || m.Dimension < 0 {
		return nil, ErrManifestInvalid
	}
	return m, nil
}

func (s *QdrantStore) createCollection(ctx context.Context, dimension int) error {
	// Qdrant rejects zero-size vectors; an empty index still gets a collection.
	size := uint64(max(dimension, 1))

	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     size,
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      fieldType,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field %s: %w", fieldType, err)
	}

	return nil
}

func (s *QdrantStore) dropCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

func (s *QdrantStore) upsert(ctx context.Context, points []*qdrant.PointStruct) error {
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	return err
}

// qdrantIndex answers queries against a saved collection.
type qdrantIndex struct {
	store     *QdrantStore
	dimension int
	count     int
}

func (q *qdrantIndex) Len() int       { return q.count }
func (q *qdrantIndex) Dimension() int { return q.dimension }

func (q *qdrantIndex) Query(ctx context.Context, vector []float32, k int) ([]index.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: %d", index.ErrInvalidK, k)
	}
	if q.count == 0 {
		return []index.Hit{}, nil
	}
	if len(vector) != q.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			index.ErrDimensionMismatch, len(vector), q.dimension)
	}

	results, err := q.search(ctx, vector, uint64(k), nil)
	if err != nil {
		return nil, err
	}

	// Qdrant cuts ties at the limit arbitrarily. Refetch everything scoring
	// at least the last returned point so the seq tie-break picks the survivors.
	if len(results) == k && k < q.count {
		threshold := results[len(results)-1].Score
		results, err = q.search(ctx, vector, uint64(q.count), &threshold)
		if err != nil {
			return nil, err
		}
	}

	return scoredHits(results, k), nil
}

func (q *qdrantIndex) search(ctx context.Context, vector []float32, limit uint64, threshold *float32) ([]*qdrant.ScoredPoint, error) {
	using := vectorName
	results, err := q.store.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.store.collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          &using,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(fieldType, pointTypeChunk)},
		},
		Limit:          qdrant.PtrOf(limit),
		ScoreThreshold: threshold,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	return results, nil
}

// scoredHits converts Qdrant results to at most k hits ordered by descending
// score, breaking ties by insertion sequence.
func scoredHits(results []*qdrant.ScoredPoint, k int) []index.Hit {
	type seqHit struct {
		seq int64
		hit index.Hit
	}

	ordered := make([]seqHit, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		ordered = append(ordered, seqHit{
			seq: payload[fieldSeq].GetIntegerValue(),
			hit: index.Hit{
				Chunk: chunker.Chunk{
					Content:     payload[fieldContent].GetStringValue(),
					SourceTitle: payload[fieldSourceTitle].GetStringValue(),
					ChunkIndex:  int(payload[fieldChunkIndex].GetIntegerValue()),
				},
				Score: float64(result.Score),
			},
		})
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].hit.Score != ordered[j].hit.Score {
			return ordered[i].hit.Score > ordered[j].hit.Score
		}
		return ordered[i].seq < ordered[j].seq
	})

	hits := make([]index.Hit, min(k, len(ordered)))
	for i := range hits {
		hits[i] = ordered[i].hit
	}
	return hits
}

func chunkPointID(seq int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("chunk/%d", seq))).String()
}

func manifestPointID() string {
	return uuid.NewSHA1(pointNamespace, []byte("manifest")).String()
}
