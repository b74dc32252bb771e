package sim

import (
	"context"
	"errors"
	"fmt"
)

var ErrNoIntegrator = errors.New("sim: no integrator set")

type Simulation struct {
	sc         *Context
	integrator Integrator
	observers  []Observer
	timestep   uint64
}

func New(sc *Context) *Simulation {
	return &Simulation{sc: sc}
}

func (s *Simulation) Context() *Context      { return s.sc }
func (s *Simulation) Timestep() uint64       { return s.timestep }
func (s *Simulation) Integrator() Integrator { return s.integrator }
func (s *Simulation) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// SetIntegrator replaces the current integrator, detaching the old one if
// it is attached. The new one is attached lazily by Run.
func (s *Simulation) SetIntegrator(integ Integrator) error {
	if s.integrator != nil && s.integrator.Attached() {
		if err := s.integrator.Detach(); err != nil {
			return fmt.Errorf("sim: detach previous integrator: %w", err)
		}
	}
	s.integrator = integ
	return nil
}

// Run advances the simulation by steps timesteps, attaching the
// integrator first if needed. It stops early when ctx is cancelled.
func (s *Simulation) Run(ctx context.Context, steps uint64) error {
	if s.integrator == nil {
		return ErrNoIntegrator
	}
	if !s.integrator.Attached() {
		if err := s.integrator.Attach(ctx, s.sc); err != nil {
			return err
		}
	}

	for i := uint64(0); i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.integrator.Step(ctx, s.timestep); err != nil {
			return err
		}
		s.timestep++

		for _, o := range s.observers {
			o.OnStep(s.timestep, s.sc.State)
		}
	}
	return nil
}
