// Package sim holds the simulation context handed to control objects on
// attach, and the loop that advances an attached integrator.
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/dynbind/internal/comm"
	"github.com/san-kum/dynbind/internal/compute"
	"github.com/san-kum/dynbind/internal/dynamo"
)

var ErrNoState = errors.New("sim: context has no state definition")

// StateDef is the authoritative description of the simulated system.
type StateDef struct {
	Model dynamo.System
	X     dynamo.State
	Time  float64
}

func (sd *StateDef) Energy() (float64, bool) {
	h, ok := sd.Model.(dynamo.Hamiltonian)
	if !ok {
		return 0, false
	}
	return h.Energy(sd.X), true
}

// Context carries the resources a backend handle is built against.
type Context struct {
	State  *StateDef
	Device compute.Device
	Comm   comm.Communicator
}

// NewContext checks that the state matches its model. A nil communicator
// means a single-rank run; a nil device means the CPU.
func NewContext(sd *StateDef, dev compute.Device, c comm.Communicator) (*Context, error) {
	if sd == nil || sd.Model == nil {
		return nil, ErrNoState
	}
	if len(sd.X) != sd.Model.StateDim() {
		return nil, fmt.Errorf("sim: state has %d entries, model wants %d: %w",
			len(sd.X), sd.Model.StateDim(), dynamo.ErrDimensionMismatch)
	}
	if dev == nil {
		dev = compute.NewCPU()
	}
	if c == nil {
		c = comm.Single()
	}
	return &Context{State: sd, Device: dev, Comm: c}, nil
}

// Integrator is a control object that can drive a simulation.
type Integrator interface {
	Attach(ctx context.Context, sc *Context) error
	Detach() error
	Attached() bool
	Step(ctx context.Context, timestep uint64) error
}

// Observer sees the state after every completed step.
type Observer interface {
	OnStep(timestep uint64, sd *StateDef)
}

type ObserverFunc func(timestep uint64, sd *StateDef)

func (f ObserverFunc) OnStep(timestep uint64, sd *StateDef) { f(timestep, sd) }
