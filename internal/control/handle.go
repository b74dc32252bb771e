package control

import (
	"context"
	"slices"

	"github.com/san-kum/dynbind/internal/sim"
)

// Handle is the backend counterpart of a control object. It is owned by
// exactly one object and released when that object detaches.
type Handle interface {
	SetParam(name string, value any) error
	Release() error
}

// Stateful handles carry internal variables that survive a detach/attach
// cycle of their control object.
type Stateful interface {
	Variables() Variables
	// SetVariables restores v, reporting false when v does not fit the
	// handle.
	SetVariables(v Variables) bool
	ResetVariables()
}

// Variables is the named internal state of a stateful handle.
type Variables struct {
	Kind   string
	Values []float64
}

// Valid reports whether v was produced by a handle of kind with n values.
func (v Variables) Valid(kind string, n int) bool {
	return v.Kind == kind && len(v.Values) == n
}

func (v Variables) Clone() Variables {
	return Variables{Kind: v.Kind, Values: slices.Clone(v.Values)}
}

// Builder constructs a handle scoped to sc.
type Builder func(ctx context.Context, sc *sim.Context) (Handle, error)
