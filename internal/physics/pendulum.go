package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/dynbind/internal/dynamo"
)

// Pendulum is a damped rigid pendulum with state [theta, omega].
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.1,
		Gravity: 9.81,
	}
}

func (p *Pendulum) StateDim() int      { return 2 }
func (p *Pendulum) RotationalDOF() int { return 1 }

// DegreesOfFreedom is zero: the pendulum only rotates.
func (p *Pendulum) DegreesOfFreedom() int { return 0 }

func (p *Pendulum) Derive(x dynamo.State, t float64) dynamo.State {
	theta, omega := x[0], x[1]
	inertia := p.Mass * p.Length * p.Length
	alpha := (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta)) / inertia
	return dynamo.State{omega, alpha}
}

func (p *Pendulum) KineticEnergy(x dynamo.State) float64 {
	v := p.Length * x[1]
	return 0.5 * p.Mass * v * v
}

func (p *Pendulum) Energy(x dynamo.State) float64 {
	return p.KineticEnergy(x) + p.Mass*p.Gravity*p.Length*(1.0-math.Cos(x[0]))
}

func (p *Pendulum) Params() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if value <= 0 {
			return fmt.Errorf("mass %v: %w", value, dynamo.ErrParameterBounds)
		}
		p.Mass = value
	case "length":
		if value <= 0 {
			return fmt.Errorf("length %v: %w", value, dynamo.ErrParameterBounds)
		}
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
