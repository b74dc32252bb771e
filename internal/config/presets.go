package config

import (
	"sort"

	"github.com/san-kum/dynbind/internal/conftree"
)

func section(kv map[string]any) *conftree.Tree { return conftree.FromMap(kv) }

func nve() *conftree.Tree {
	return section(map[string]any{"nve": map[string]any{}})
}

func nvt(kT, tau float64) *conftree.Tree {
	return section(map[string]any{"nvt": map[string]any{"kT": kT, "tau": tau}})
}

var Presets = map[string]map[string]*Config{
	"pendulum": {
		"small": {
			Model: "pendulum", Particles: 1, Steps: 4000,
			InitState:  InitStateConfig{Positions: 0.2},
			Integrator: section(map[string]any{"dt": 0.005}),
			Methods:    nve(),
		},
		"large": {
			Model: "pendulum", Particles: 1, Steps: 4000,
			InitState:  InitStateConfig{Positions: 2.5},
			Parameters: section(map[string]any{"damping": 0.0}),
			Integrator: section(map[string]any{"dt": 0.005}),
			Methods:    nve(),
		},
		"frozen": {
			Model: "pendulum", Particles: 1, Steps: 1000,
			InitState:  InitStateConfig{Positions: 1.0},
			Integrator: section(map[string]any{"dt": 0.005, "aniso": "false"}),
			Methods:    nve(),
		},
	},
	"spring_chain": {
		"pluck": {
			Model: "spring_chain", Particles: 5, Steps: 4000,
			InitState:  InitStateConfig{Positions: []any{0.0, 0.0, 0.5}},
			Parameters: section(map[string]any{"stiffness": 20.0}),
			Integrator: section(map[string]any{"dt": 0.005}),
			Methods:    nve(),
		},
		"thermal": {
			Model: "spring_chain", Particles: 5, Steps: 8000,
			InitState:  InitStateConfig{Velocities: []any{1.0, -1.0, 1.0, -1.0, 1.0}},
			Integrator: section(map[string]any{"dt": 0.005}),
			Methods:    nvt(0.2, 0.5),
		},
	},
	"nbody": {
		"ring": {
			Model: "nbody", Particles: 8, Steps: 5000,
			Integrator: section(map[string]any{"dt": 0.001}),
			Methods:    nve(),
		},
		"cooled": {
			Model: "nbody", Particles: 8, Steps: 5000,
			Parameters: section(map[string]any{"softening": 0.05}),
			Integrator: section(map[string]any{"dt": 0.001}),
			Methods:    nvt(0.05, 1.0),
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	out := cfg.Clone()
	out.Device = "auto"
	return out
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
