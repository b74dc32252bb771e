package integrators

import "github.com/san-kum/dynbind/internal/dynamo"

type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

// stage evaluates the derivative at x + h*k into out.
func (r *RK4) stage(sys dynamo.System, x, k dynamo.State, t, h float64, out dynamo.State) {
	for i := range x {
		r.scratch[i] = x[i] + h*k[i]
	}
	copy(out, sys.Derive(r.scratch, t+h))
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, sys.Derive(x, t))
	r.stage(sys, x, r.k1, t, dt*0.5, r.k2)
	r.stage(sys, x, r.k2, t, dt*0.5, r.k3)
	r.stage(sys, x, r.k3, t, dt, r.k4)

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return result
}

// ByName returns the kernel called name ("verlet" or "rk4").
func ByName(name string) (dynamo.Integrator, bool) {
	switch name {
	case "verlet", "":
		return NewVerlet(), true
	case "rk4":
		return NewRK4(), true
	}
	return nil, false
}
