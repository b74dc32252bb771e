package physics

import (
	"fmt"
	"sort"

	"github.com/san-kum/dynbind/internal/compute"
	"github.com/san-kum/dynbind/internal/dynamo"
)

// Model is what every state definition in this package provides.
type Model interface {
	dynamo.System
	dynamo.Hamiltonian
	dynamo.Kinetic
	dynamo.Configurable
}

var builders = map[string]func(n int, dev compute.Device) Model{
	"pendulum":     func(int, compute.Device) Model { return NewPendulum() },
	"spring_chain": func(n int, _ compute.Device) Model { return NewSpringChain(n) },
	"nbody":        func(n int, dev compute.Device) Model { return NewNBody(n, dev) },
}

// New builds the model called name with n particles (ignored by the
// pendulum).
func New(name string, n int, dev compute.Device) (Model, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	if n < 1 && name != "pendulum" {
		return nil, fmt.Errorf("model %s needs at least one particle, got %d", name, n)
	}
	return build(n, dev), nil
}

func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
