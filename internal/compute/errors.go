package compute

import "errors"

// ErrNoGPU indicates a GPU device was requested but none is present.
var ErrNoGPU = errors.New("GPU support not available")
