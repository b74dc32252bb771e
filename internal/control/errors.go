package control

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyAttached = errors.New("control: already attached")
	ErrNotAttached     = errors.New("control: not attached")
	ErrNoHandle        = errors.New("control: backend returned no handle")
)

// BackendConstructionError reports a handle the backend failed to build.
// The backend error is kept unchanged.
type BackendConstructionError struct {
	Object string
	Err    error
}

func (e *BackendConstructionError) Error() string {
	return fmt.Sprintf("control: %s: backend construction failed: %v", e.Object, e.Err)
}

func (e *BackendConstructionError) Unwrap() error { return e.Err }
