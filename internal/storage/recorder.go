package storage

import (
	"math"

	"github.com/san-kum/dynbind/internal/sim"
)

// Sample is one recorded point of a run.
type Sample struct {
	Timestep uint64
	Time     float64
	Energy   float64
	State    []float64
}

// Recorder is a sim.Observer keeping every n-th step.
type Recorder struct {
	every   uint64
	samples []Sample
}

func NewRecorder(every uint64) *Recorder {
	if every == 0 {
		every = 1
	}
	return &Recorder{every: every}
}

func (r *Recorder) OnStep(timestep uint64, sd *sim.StateDef) {
	if timestep%r.every != 0 {
		return
	}
	e, _ := sd.Energy()
	r.samples = append(r.samples, Sample{
		Timestep: timestep,
		Time:     sd.Time,
		Energy:   e,
		State:    sd.X.Clone(),
	})
}

// Record adds a sample outside the step loop, e.g. the initial state.
func (r *Recorder) Record(timestep uint64, sd *sim.StateDef) {
	e, _ := sd.Energy()
	r.samples = append(r.samples, Sample{Timestep: timestep, Time: sd.Time, Energy: e, State: sd.X.Clone()})
}

func (r *Recorder) Samples() []Sample { return r.samples }

func (r *Recorder) Energies() []float64 {
	out := make([]float64, len(r.samples))
	for i, s := range r.samples {
		out[i] = s.Energy
	}
	return out
}

// EnergyDrift is |E_last - E_first| / |E_first|, or 0 when undefined.
func (r *Recorder) EnergyDrift() float64 {
	if len(r.samples) < 2 || r.samples[0].Energy == 0 {
		return 0
	}
	first, last := r.samples[0].Energy, r.samples[len(r.samples)-1].Energy
	return math.Abs(last-first) / math.Abs(first)
}
