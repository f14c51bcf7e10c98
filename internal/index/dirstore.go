package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mike-a-ellis/cancerlit-rag/internal/chunker"
)

// indexFile is the database file inside the index directory.
const indexFile = "index.db"

// DirStore persists a Flat index as a SQLite database in a directory.
type DirStore struct {
	dir    string
	path   string
	logger *slog.Logger
}

var _ Store = (*DirStore)(nil)

// NewDirStore creates a store rooted at dir. Nothing is touched on disk
// until Save.
func NewDirStore(dir string, logger *slog.Logger) *DirStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirStore{
		dir:    dir,
		path:   filepath.Join(dir, indexFile),
		logger: logger,
	}
}

// Path returns the database file path.
func (s *DirStore) Path() string { return s.path }

// Exists reports whether a saved index file is present.
func (s *DirStore) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat index: %w", err)
}

// Save writes idx to a temporary file and renames it over the previous
// index, so readers only ever see a complete database.
func (s *DirStore) Save(ctx context.Context, idx *Flat) (err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale temp index: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if err := writeDatabase(ctx, tmp, idx); err != nil {
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("publishing index: %w", err)
	}

	s.logger.Info("Index saved", "path", s.path, "chunks", idx.Len(), "dimension", idx.Dimension())
	return nil
}

func writeDatabase(ctx context.Context, path string, idx *Flat) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	schema := []string{
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
		`CREATE TABLE chunks (
			seq          INTEGER PRIMARY KEY,
			content      TEXT NOT NULL,
			source_title TEXT NOT NULL,
			chunk_index  INTEGER NOT NULL,
			vector       BLOB NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (seq, content, source_title, chunk_index, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for seq, entry := range idx.Entries() {
		_, err := stmt.ExecContext(ctx, seq, entry.Chunk.Content, entry.Chunk.SourceTitle,
			entry.Chunk.ChunkIndex, float32SliceToBytes(entry.Vector))
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", seq, err)
		}
	}

	meta := map[string]string{
		"dimension": strconv.Itoa(idx.Dimension()),
		"count":     strconv.Itoa(idx.Len()),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("writing meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return nil
}

// Load reads the saved index into memory. It returns ErrNotFound when no
// index has been saved.
func (s *DirStore) Load(ctx context.Context) (Index, error) {
	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var dimension, count int
	if err := readMetaInt(ctx, db, "dimension", &dimension); err != nil {
		return nil, err
	}
	if err := readMetaInt(ctx, db, "count", &count); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT content, source_title, chunk_index, vector FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, count)
	for rows.Next() {
		var (
			chunk chunker.Chunk
			blob  []byte
		)
		if err := rows.Scan(&chunk.Content, &chunk.SourceTitle, &chunk.ChunkIndex, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		vec := bytesToFloat32Slice(blob)
		if len(vec) != dimension {
			return nil, fmt.Errorf("%w: stored vector has %d dimensions, expected %d",
				ErrDimensionMismatch, len(vec), dimension)
		}
		entries = append(entries, Entry{Chunk: chunk, Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	if len(entries) != count {
		return nil, fmt.Errorf("index is incomplete: %d of %d chunks", len(entries), count)
	}

	s.logger.Debug("Index loaded", "path", s.path, "chunks", len(entries))
	return &Flat{entries: entries, dimension: dimension}, nil
}

func readMetaInt(ctx context.Context, db *sql.DB, key string, dst *int) error {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return fmt.Errorf("reading meta %s: %w", key, err)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parsing meta %s: %w", key, err)
	}
	*dst = n
	return nil
}

// Health reports ErrNotFound until an index has been saved.
func (s *DirStore) Health(ctx context.Context) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	return nil
}

// Close is a no-op; connections are opened per operation.
func (s *DirStore) Close() error { return nil }

// float32SliceToBytes converts a []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
