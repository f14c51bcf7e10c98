package storage

// DefaultCollection holds the abstract chunks when no collection is configured.
const DefaultCollection = "cancer_abstracts"

// vectorName is the named vector carrying chunk embeddings. The manifest
// point has no vector.
const vectorName = "content"

// upsertBatchSize bounds the number of points per upsert request.
const upsertBatchSize = 100

// Point types stored in the "type" payload field.
const (
	pointTypeChunk    = "chunk"
	pointTypeManifest = "manifest"
)

// Payload field names.
const (
	fieldType        = "type"
	fieldSeq         = "seq"
	fieldContent     = "content"
	fieldSourceTitle = "source_title"
	fieldChunkIndex  = "chunk_index"
	fieldDimension   = "dimension"
	fieldCount       = "count"
	fieldBuiltAt     = "built_at"
)

// Manifest describes a completed save. It is written after every chunk, so
// its presence marks the collection as loadable.
type Manifest struct {
	Dimension int
	Count     int
	BuiltAt   string
}
