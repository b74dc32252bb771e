package params

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches any *ValidationError.
	ErrValidation = errors.New("params: validation failed")

	// ErrUnset matches any *UnsetFieldError.
	ErrUnset = errors.New("params: field is unset")

	// ErrUnknownField matches any *UnknownFieldError.
	ErrUnknownField = errors.New("params: unknown field")
)

// ValidationError reports a value rejected by a field validator. The field
// keeps its previous value.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid value %v: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("field %q: invalid value %v: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnsetFieldError reports a read of a field with no value and no default.
type UnsetFieldError struct {
	Field string
}

func (e *UnsetFieldError) Error() string {
	return fmt.Sprintf("field %q is unset and has no default", e.Field)
}

func (e *UnsetFieldError) Is(target error) bool { return target == ErrUnset }

// UnknownFieldError reports access to a name missing from the schema.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

func (e *UnknownFieldError) Is(target error) bool { return target == ErrUnknownField }
