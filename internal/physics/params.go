package physics

import (
	"fmt"
	"sort"

	"github.com/san-kum/dynbind/internal/conftree"
	"github.com/san-kum/dynbind/internal/dynamo"
	"github.com/san-kum/dynbind/internal/params"
)

// Bounds on model parameters. Names not listed accept any finite number.
var validators = map[string]params.Validator{
	"mass":      params.Positive,
	"length":    params.Positive,
	"stiffness": params.NonNegative,
	"damping":   params.NonNegative,
	"softening": params.NonNegative,
}

// Parameters returns a dictionary over the parameters of m, defaulted to
// their current values.
func Parameters(m dynamo.Configurable) *params.Dict {
	current := m.Params()
	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]params.Field, 0, len(names))
	for _, name := range names {
		v, ok := validators[name]
		if !ok {
			v = params.Float64
		}
		fields = append(fields, params.NewField(name, v, params.WithDefault(current[name])))
	}
	return params.MustNew(fields...)
}

// Configure applies the parameter section t to m. Every value is validated
// before any reaches the model, so a rejected section leaves m unchanged.
func Configure(m dynamo.Configurable, t *conftree.Tree) error {
	if t == nil || t.Len() == 0 {
		return nil
	}
	d := Parameters(m)
	if err := d.Update(t); err != nil {
		return err
	}
	return d.Apply(setter{m})
}

type setter struct {
	m dynamo.Configurable
}

func (s setter) SetParam(name string, value any) error {
	f, ok := value.(float64)
	if !ok {
		return fmt.Errorf("%s: expected a number, got %T", name, value)
	}
	return s.m.SetParam(name, f)
}
