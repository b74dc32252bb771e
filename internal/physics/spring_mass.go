package physics

import (
	"fmt"

	"github.com/san-kum/dynbind/internal/dynamo"
)

const (
	DefaultMass      = 1.0
	DefaultStiffness = 10.0
	DefaultDamping   = 0.0
)

// SpringChain is n masses joined by springs and pinned to walls at both
// ends. State is [x_0..x_n-1, v_0..v_n-1].
type SpringChain struct {
	Mass      float64
	Stiffness float64
	Damping   float64
	n         int
}

func NewSpringChain(n int) *SpringChain {
	return &SpringChain{
		Mass:      DefaultMass,
		Stiffness: DefaultStiffness,
		Damping:   DefaultDamping,
		n:         n,
	}
}

func (s *SpringChain) StateDim() int         { return 2 * s.n }
func (s *SpringChain) DegreesOfFreedom() int { return s.n }

// displacement of mass i, with the walls fixed at zero.
func (s *SpringChain) pos(x dynamo.State, i int) float64 {
	if i < 0 || i >= s.n {
		return 0
	}
	return x[i]
}

func (s *SpringChain) Derive(x dynamo.State, t float64) dynamo.State {
	n := s.n
	dx := make(dynamo.State, 2*n)
	for i := 0; i < n; i++ {
		dx[i] = x[n+i]
		force := s.Stiffness*(s.pos(x, i-1)-x[i]) + s.Stiffness*(s.pos(x, i+1)-x[i]) - s.Damping*x[n+i]
		dx[n+i] = force / s.Mass
	}
	return dx
}

func (s *SpringChain) KineticEnergy(x dynamo.State) float64 {
	ke := 0.0
	for _, v := range x.Velocities() {
		ke += 0.5 * s.Mass * v * v
	}
	return ke
}

func (s *SpringChain) Energy(x dynamo.State) float64 {
	pe := 0.0
	for i := 0; i <= s.n; i++ {
		stretch := s.pos(x, i) - s.pos(x, i-1)
		pe += 0.5 * s.Stiffness * stretch * stretch
	}
	return s.KineticEnergy(x) + pe
}

func (s *SpringChain) Params() map[string]float64 {
	return map[string]float64{
		"mass":      s.Mass,
		"stiffness": s.Stiffness,
		"damping":   s.Damping,
	}
}

func (s *SpringChain) SetParam(name string, value float64) error {
	if value < 0 || (name == "mass" && value == 0) {
		return fmt.Errorf("%s %v: %w", name, value, dynamo.ErrParameterBounds)
	}
	switch name {
	case "mass":
		s.Mass = value
	case "stiffness":
		s.Stiffness = value
	case "damping":
		s.Damping = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
