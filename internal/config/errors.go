package config

import "errors"

// ErrMissingCredential is returned before any network client is created when
// the generative API key is absent.
var ErrMissingCredential = errors.New("configuration error: missing API credential")
