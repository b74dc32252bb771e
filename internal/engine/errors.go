package engine

import (
	"errors"
	"fmt"
)

var (
	ErrReleased     = errors.New("engine: handle already released")
	ErrNoState      = errors.New("engine: simulation context has no state")
	ErrNotKinetic   = errors.New("engine: system does not expose kinetic energy")
	ErrUnknownParam = errors.New("engine: unknown parameter")
	ErrParamType    = errors.New("engine: parameter has wrong type")
	ErrParamRange   = errors.New("engine: parameter out of range")
	ErrMethodSet    = errors.New("engine: integrator already drives a method")
)

func paramError(handle, name string, err error) error {
	return fmt.Errorf("%s: %q: %w", handle, name, err)
}
