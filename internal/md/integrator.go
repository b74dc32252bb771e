// Package md provides the molecular-dynamics control objects: an
// integrator with a timestep and anisotropic mode, and the integration
// methods it drives.
package md

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/dynbind/internal/control"
	"github.com/san-kum/dynbind/internal/engine"
	"github.com/san-kum/dynbind/internal/params"
	"github.com/san-kum/dynbind/internal/sim"
)

// ErrMethodConflict is returned when an integrator is given a second
// method. Its method integrates every degree of freedom.
var ErrMethodConflict = errors.New("md: integrator already has a method")

// Kernels lists the stepping kernels the kernel field accepts.
var Kernels = []string{"verlet", "rk4"}

// Integrator advances a simulation with a fixed timestep dt. The aniso
// field selects whether rotational degrees of freedom are integrated:
// "true", "false" or "auto" (the default) to decide from the system. The
// kernel field picks the stepping scheme its method uses.
type Integrator struct {
	*control.Object
	methods []*Method
}

// NewIntegrator takes at most one method.
func NewIntegrator(dt float64, methods ...*Method) (*Integrator, error) {
	if len(methods) > 1 {
		return nil, fmt.Errorf("%w: got %d", ErrMethodConflict, len(methods))
	}
	d := params.MustNew(
		params.NewField("dt", params.Positive),
		params.NewField("aniso", params.AnisoMode, params.WithDefault(params.AnisoAuto)),
		params.NewField("kernel", params.OneOf(Kernels...), params.WithDefault(Kernels[0])),
	)
	if err := d.Set("dt", dt); err != nil {
		return nil, err
	}
	return &Integrator{
		Object: control.New("integrator", d, func(ctx context.Context, sc *sim.Context) (control.Handle, error) {
			return engine.NewTwoStep(ctx, sc)
		}),
		methods: methods,
	}, nil
}

func (i *Integrator) Methods() []*Method {
	out := make([]*Method, len(i.methods))
	copy(out, i.methods)
	return out
}

// Attach attaches the integrator and then its method. If the method fails
// everything attached so far is detached again.
func (i *Integrator) Attach(ctx context.Context, sc *sim.Context) error {
	if err := i.Object.Attach(ctx, sc); err != nil {
		return err
	}
	ts := i.backend()
	for k, m := range i.methods {
		if err := m.Attach(ctx, sc); err != nil {
			i.rollback(k)
			return fmt.Errorf("attach method %s: %w", m.Name(), err)
		}
		if err := ts.SetMethod(m.backend()); err != nil {
			i.rollback(k + 1)
			return fmt.Errorf("attach method %s: %w", m.Name(), err)
		}
	}
	return nil
}

func (i *Integrator) rollback(attached int) {
	for _, m := range i.methods[:attached] {
		_ = m.Detach()
	}
	_ = i.Object.Detach()
}

// Detach detaches every method and then the integrator.
func (i *Integrator) Detach() error {
	if !i.Attached() {
		return i.Object.Detach()
	}
	var errs []error
	for _, m := range i.methods {
		if err := m.Detach(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := i.Object.Detach(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AddMethod gives the integrator its method, attaching it right away when
// the integrator is attached. It fails with ErrMethodConflict when the
// integrator already has one.
func (i *Integrator) AddMethod(ctx context.Context, sc *sim.Context, m *Method) error {
	if len(i.methods) > 0 {
		return fmt.Errorf("%w: %s", ErrMethodConflict, i.methods[0].Name())
	}
	if i.Attached() {
		if err := m.Attach(ctx, sc); err != nil {
			return fmt.Errorf("attach method %s: %w", m.Name(), err)
		}
		if err := i.backend().SetMethod(m.backend()); err != nil {
			_ = m.Detach()
			return fmt.Errorf("attach method %s: %w", m.Name(), err)
		}
	}
	i.methods = append(i.methods, m)
	return nil
}

// ResetMethods discards the internal state of every method.
func (i *Integrator) ResetMethods() {
	for _, m := range i.methods {
		m.ResetInternalState()
	}
}

// Step advances the attached backend by one timestep.
func (i *Integrator) Step(ctx context.Context, timestep uint64) error {
	ts := i.backend()
	if ts == nil {
		return fmt.Errorf("%s: %w", i.Name(), control.ErrNotAttached)
	}
	return ts.Step(ctx, timestep)
}

func (i *Integrator) Energy() (float64, bool) {
	ts := i.backend()
	if ts == nil {
		return 0, false
	}
	return ts.Energy()
}

func (i *Integrator) backend() *engine.TwoStep {
	h, ok := i.Handle()
	if !ok {
		return nil
	}
	return h.(*engine.TwoStep)
}
