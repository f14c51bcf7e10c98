package storage

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
)

func scoredPoint(seq int, score float32) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{
		Score: score,
		Payload: qdrant.NewValueMap(map[string]any{
			fieldSeq:         seq,
			fieldContent:     "chunk",
			fieldSourceTitle: "title",
			fieldChunkIndex:  seq % 2,
		}),
	}
}

func TestScoredHits_OrderAndTies(t *testing.T) {
	hits := scoredHits([]*qdrant.ScoredPoint{
		scoredPoint(7, 0.5),
		scoredPoint(2, 0.9),
		scoredPoint(4, 0.5),
		scoredPoint(1, 0.5),
	}, 10)

	scores := make([]float64, len(hits))
	indexes := make([]int, len(hits))
	for i, h := range hits {
		scores[i] = h.Score
		indexes[i] = h.Chunk.ChunkIndex
	}

	assert.InDelta(t, 0.9, scores[0], 1e-6)
	// Ties at 0.5 ordered by seq 1, 4, 7.
	assert.Equal(t, []int{0, 1, 0, 1}, indexes)
}

func TestScoredHits_TiesAtLimitKeepEarliest(t *testing.T) {
	// Four points tied at 0.5 for the last two slots.
	hits := scoredHits([]*qdrant.ScoredPoint{
		scoredPoint(9, 0.5),
		scoredPoint(3, 0.8),
		scoredPoint(6, 0.5),
		scoredPoint(4, 0.5),
		scoredPoint(5, 0.5),
	}, 3)

	seqs := make([]int, len(hits))
	for i, h := range hits {
		seqs[i] = h.Chunk.ChunkIndex
	}
	// ChunkIndex is seq % 2: seq 3, then the earliest ties, seq 4 and 5.
	assert.Equal(t, []int{1, 0, 1}, seqs)
	assert.InDelta(t, 0.8, hits[0].Score, 1e-6)
}

func TestPointIDsDeterministic(t *testing.T) {
	assert.Equal(t, chunkPointID(3), chunkPointID(3))
	assert.NotEqual(t, chunkPointID(3), chunkPointID(4))
	assert.NotEqual(t, chunkPointID(0), manifestPointID())
}
