package embedding

import "errors"

var (
	// ErrService reports a failed call to the embedding model: network, auth,
	// quota, or a malformed response.
	ErrService = errors.New("embedding service error")

	ErrEmptyText = errors.New("cannot embed empty text")
)
