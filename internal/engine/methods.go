package engine

import (
	"context"
	"math"

	"github.com/san-kum/dynbind/internal/control"
	"github.com/san-kum/dynbind/internal/dynamo"
	"github.com/san-kum/dynbind/internal/sim"
)

// NVE integrates at constant energy.
type NVE struct {
	released bool
}

func NewNVE(ctx context.Context, sc *sim.Context) (*NVE, error) {
	if sc == nil || sc.State == nil || sc.State.Model == nil {
		return nil, ErrNoState
	}
	return &NVE{}, nil
}

func (m *NVE) SetParam(name string, value any) error {
	return paramError("nve", name, ErrUnknownParam)
}

func (m *NVE) Release() error {
	if m.released {
		return ErrReleased
	}
	m.released = true
	return nil
}

func (m *NVE) Integrate(kernel dynamo.Integrator, sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	return kernel.Step(sys, x, t, dt)
}

// NVTKind tags the internal variables of an NVT handle.
const NVTKind = "nvt"

// NVT is a Nosé-Hoover thermostat. Its internal variables are the
// thermostat momentum xi and the integrated thermostat position eta.
type NVT struct {
	kinetic  dynamo.Kinetic
	kT       float64
	tau      float64
	xi       float64
	eta      float64
	released bool
}

// NewNVT fails with ErrNotKinetic when the model cannot report a
// temperature.
func NewNVT(ctx context.Context, sc *sim.Context) (*NVT, error) {
	if sc == nil || sc.State == nil || sc.State.Model == nil {
		return nil, ErrNoState
	}
	k, ok := sc.State.Model.(dynamo.Kinetic)
	if !ok || k.DegreesOfFreedom() == 0 {
		return nil, ErrNotKinetic
	}
	return &NVT{kinetic: k, kT: 1, tau: 1}, nil
}

func (m *NVT) SetParam(name string, value any) error {
	if m.released {
		return ErrReleased
	}
	v, ok := value.(float64)
	if !ok {
		return paramError("nvt", name, ErrParamType)
	}
	if v <= 0 {
		return paramError("nvt", name, ErrParamRange)
	}
	switch name {
	case "kT":
		m.kT = v
	case "tau":
		m.tau = v
	default:
		return paramError("nvt", name, ErrUnknownParam)
	}
	return nil
}

func (m *NVT) Release() error {
	if m.released {
		return ErrReleased
	}
	m.released = true
	return nil
}

func (m *NVT) Variables() control.Variables {
	return control.Variables{Kind: NVTKind, Values: []float64{m.xi, m.eta}}
}

func (m *NVT) SetVariables(v control.Variables) bool {
	if !v.Valid(NVTKind, 2) {
		return false
	}
	m.xi, m.eta = v.Values[0], v.Values[1]
	return true
}

func (m *NVT) ResetVariables() {
	m.xi, m.eta = 0, 0
}

// Temperature is the instantaneous kinetic temperature 2K/dof.
func (m *NVT) Temperature(x dynamo.State) float64 {
	return 2 * m.kinetic.KineticEnergy(x) / float64(m.kinetic.DegreesOfFreedom())
}

func (m *NVT) thermostat(x dynamo.State, halfDt float64) {
	m.xi += halfDt * (m.Temperature(x)/m.kT - 1) / (m.tau * m.tau)
}

func (m *NVT) Integrate(kernel dynamo.Integrator, sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	halfDt := dt / 2

	m.thermostat(x, halfDt)
	scaled := x.Clone()
	scale(scaled.Velocities(), math.Exp(-m.xi*halfDt))

	next := kernel.Step(sys, scaled, t, dt)
	scale(next.Velocities(), math.Exp(-m.xi*halfDt))
	m.thermostat(next, halfDt)

	m.eta += m.xi * dt
	return next
}

func scale(v []float64, f float64) {
	for i := range v {
		v[i] *= f
	}
}
