// Package engine is the numerical backend behind control objects: handles
// built against a simulation context that advance its state.
package engine

import (
	"context"
	"fmt"

	"github.com/san-kum/dynbind/internal/dynamo"
	"github.com/san-kum/dynbind/internal/integrators"
	"github.com/san-kum/dynbind/internal/sim"
)

// Method advances the state by one step using kernel.
type Method interface {
	Integrate(kernel dynamo.Integrator, sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State
}

// TwoStep is the integrator handle. Each step hands the state to its
// method, which integrates every degree of freedom once; with no method the
// state only advances in time.
type TwoStep struct {
	sc         *sim.Context
	kernel     dynamo.Integrator
	kernelName string
	dt         float64
	aniso      string
	method     Method
	released   bool
}

// NewTwoStep builds the handle for sc. Construction is collective: every
// rank of sc.Comm must call it.
func NewTwoStep(ctx context.Context, sc *sim.Context) (*TwoStep, error) {
	if sc == nil || sc.State == nil || sc.State.Model == nil {
		return nil, ErrNoState
	}
	sd := sc.State
	if len(sd.X) != sd.Model.StateDim() {
		return nil, fmt.Errorf("two_step: %w", dynamo.ErrDimensionMismatch)
	}
	if err := sc.Comm.Barrier(ctx); err != nil {
		return nil, fmt.Errorf("two_step: rank %d: %w", sc.Comm.Rank(), err)
	}
	return &TwoStep{
		sc:         sc,
		kernel:     integrators.NewVerlet(),
		kernelName: "verlet",
		aniso:      "auto",
	}, nil
}

func (ts *TwoStep) SetParam(name string, value any) error {
	if ts.released {
		return ErrReleased
	}
	switch name {
	case "dt":
		dt, ok := value.(float64)
		if !ok {
			return paramError("two_step", name, ErrParamType)
		}
		if dt <= 0 {
			return paramError("two_step", name, ErrParamRange)
		}
		ts.dt = dt
	case "aniso":
		mode, ok := value.(string)
		if !ok {
			return paramError("two_step", name, ErrParamType)
		}
		switch mode {
		case "true", "false", "auto":
			ts.aniso = mode
		default:
			return paramError("two_step", name, ErrParamRange)
		}
	case "kernel":
		kind, ok := value.(string)
		if !ok {
			return paramError("two_step", name, ErrParamType)
		}
		kernel, ok := integrators.ByName(kind)
		if !ok {
			return paramError("two_step", name, ErrParamRange)
		}
		ts.kernel, ts.kernelName = kernel, kind
	default:
		return paramError("two_step", name, ErrUnknownParam)
	}
	return nil
}

func (ts *TwoStep) Release() error {
	if ts.released {
		return ErrReleased
	}
	ts.released = true
	ts.method = nil
	return nil
}

func (ts *TwoStep) Dt() float64    { return ts.dt }
func (ts *TwoStep) Aniso() string  { return ts.aniso }
func (ts *TwoStep) Kernel() string { return ts.kernelName }
func (ts *TwoStep) Method() Method { return ts.method }

// SetMethod installs m. A nil m removes the current method. Installing a
// second method fails with ErrMethodSet.
func (ts *TwoStep) SetMethod(m Method) error {
	if m != nil && ts.method != nil {
		return ErrMethodSet
	}
	ts.method = m
	return nil
}

// Anisotropic resolves the aniso mode: "auto" integrates rotational
// degrees of freedom only when the system has some.
func (ts *TwoStep) Anisotropic() bool {
	switch ts.aniso {
	case "true":
		return true
	case "false":
		return false
	}
	r, ok := ts.sc.State.Model.(dynamo.Rotational)
	return ok && r.RotationalDOF() > 0
}

// Step advances the state by dt. A state that turns NaN or Inf is
// reported and not committed.
func (ts *TwoStep) Step(ctx context.Context, timestep uint64) error {
	if ts.released {
		return ErrReleased
	}
	sd := ts.sc.State

	x := sd.X
	if ts.method != nil {
		x = ts.method.Integrate(ts.kernel, sd.Model, x, sd.Time, ts.dt)
	}
	if r, ok := sd.Model.(dynamo.Rotational); ok && !ts.Anisotropic() {
		x = freeze(x, sd.X, r.RotationalDOF())
	}
	if !x.IsValid() {
		return &dynamo.SimulationError{Step: timestep, Time: sd.Time, Wrapped: dynamo.ErrInvalidState}
	}

	sd.X = x
	sd.Time += ts.dt
	return nil
}

// Energy reports the total energy when the model defines one.
func (ts *TwoStep) Energy() (float64, bool) {
	return ts.sc.State.Energy()
}

// freeze copies the first n coordinates and their velocities from prev
// into x.
func freeze(x, prev dynamo.State, n int) dynamo.State {
	if n == 0 || len(x) != len(prev) {
		return x
	}
	half := len(x) / 2
	for i := 0; i < n && i < half; i++ {
		x[i] = prev[i]
		x[half+i] = prev[half+i]
	}
	return x
}
