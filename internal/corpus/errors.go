package corpus

import "errors"

// ErrFetch is returned when a dataset cannot be resolved or read. It aborts
// index construction.
var ErrFetch = errors.New("corpus fetch failed")
