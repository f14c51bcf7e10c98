package storage

import "errors"

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrManifestInvalid   = errors.New("collection manifest is invalid")
)
