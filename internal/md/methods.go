package md

import (
	"context"
	"fmt"

	"github.com/san-kum/dynbind/internal/control"
	"github.com/san-kum/dynbind/internal/engine"
	"github.com/san-kum/dynbind/internal/params"
	"github.com/san-kum/dynbind/internal/sim"
)

// Method is an integration method owned by an Integrator. It attaches and
// detaches together with its integrator.
type Method struct {
	*control.Object
}

func NewNVE() *Method {
	return &Method{control.New("nve", nil, func(ctx context.Context, sc *sim.Context) (control.Handle, error) {
		return engine.NewNVE(ctx, sc)
	})}
}

// NewNVT returns a Nosé-Hoover thermostat at temperature kT with coupling
// time tau.
func NewNVT(kT, tau float64) (*Method, error) {
	d := params.MustNew(
		params.NewField("kT", params.Positive),
		params.NewField("tau", params.Positive),
	)
	if err := d.Set("kT", kT); err != nil {
		return nil, err
	}
	if err := d.Set("tau", tau); err != nil {
		return nil, err
	}
	return &Method{control.New("nvt", d, func(ctx context.Context, sc *sim.Context) (control.Handle, error) {
		return engine.NewNVT(ctx, sc)
	})}, nil
}

// NewMethod builds a method by kind with defaults for its parameters.
func NewMethod(kind string) (*Method, error) {
	switch kind {
	case "nve":
		return NewNVE(), nil
	case "nvt":
		return NewNVT(1, 1)
	}
	return nil, fmt.Errorf("md: unknown method %q", kind)
}

// MethodKinds lists the kinds NewMethod accepts.
func MethodKinds() []string { return []string{"nve", "nvt"} }

func (m *Method) backend() engine.Method {
	h, ok := m.Handle()
	if !ok {
		return nil
	}
	return h.(engine.Method)
}
