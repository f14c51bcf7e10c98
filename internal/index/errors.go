package index

import "errors"

var (
	ErrNotFound          = errors.New("vector index not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrLengthMismatch    = errors.New("chunk and embedding counts differ")
	ErrInvalidK          = errors.New("k must be a positive integer")
)
