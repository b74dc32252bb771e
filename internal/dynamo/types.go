package dynamo

import "math"

// State is a phase-space vector laid out as [q_0..q_n-1, p_0..p_n-1]:
// generalized coordinates first, velocities second.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Velocities returns the second half of the state, sharing storage.
func (s State) Velocities() []float64 {
	return s[len(s)/2:]
}

// System is an ODE dX/dt = f(X, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Hamiltonian systems report their total energy.
type Hamiltonian interface {
	Energy(x State) float64
}

// Kinetic systems expose the kinetic part of their energy, which
// thermostats need to measure temperature.
type Kinetic interface {
	KineticEnergy(x State) float64
	DegreesOfFreedom() int
}

// Rotational systems carry rotational degrees of freedom; integrators in
// automatic anisotropic mode integrate them only when this reports > 0.
type Rotational interface {
	RotationalDOF() int
}

type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}

// Configurable systems expose named physical parameters.
type Configurable interface {
	Params() map[string]float64
	SetParam(name string, value float64) error
}
