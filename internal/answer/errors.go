package answer

import "errors"

// ErrGeneration reports a failed call to the generative model.
var ErrGeneration = errors.New("answer generation failed")
