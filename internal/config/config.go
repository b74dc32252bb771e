package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dynbind/internal/compute"
	"github.com/san-kum/dynbind/internal/conftree"
	"github.com/san-kum/dynbind/internal/dynamo"
	"github.com/san-kum/dynbind/internal/md"
	"github.com/san-kum/dynbind/internal/params"
	"github.com/san-kum/dynbind/internal/physics"
)

const (
	DefaultDt        = 0.005
	DefaultSteps     = 1000
	DefaultParticles = 3
	DefaultTheta     = 0.5
)

var ErrInvalidConfig = errors.New("config: invalid description")

// Config is a simulation description. The parameters, integrator and
// methods sections stay trees so they can be applied to parameter
// dictionaries field by field; methods are keyed by kind.
type Config struct {
	Model      string          `yaml:"model"`
	Particles  int             `yaml:"particles"`
	Device     string          `yaml:"device"`
	Steps      uint64          `yaml:"steps"`
	InitState  InitStateConfig `yaml:"init_state"`
	Parameters *conftree.Tree  `yaml:"parameters,omitempty"`
	Integrator *conftree.Tree  `yaml:"integrator,omitempty"`
	Methods    *conftree.Tree  `yaml:"methods,omitempty"`
}

// InitStateConfig holds initial coordinates and velocities. Each accepts
// a single number or a list; missing entries are zero.
type InitStateConfig struct {
	Positions  any `yaml:"positions,omitempty"`
	Velocities any `yaml:"velocities,omitempty"`
}

func DefaultConfig() *Config {
	integ := conftree.New()
	integ.Set("dt", DefaultDt)
	methods := conftree.New()
	methods.Set("nve", conftree.New())

	return &Config{
		Model:      "pendulum",
		Particles:  DefaultParticles,
		Device:     "auto",
		Steps:      DefaultSteps,
		InitState:  InitStateConfig{Positions: DefaultTheta},
		Integrator: integ,
		Methods:    methods,
	}
}

func (c *Config) Clone() *Config {
	out := *c
	if c.Parameters != nil {
		out.Parameters = c.Parameters.Clone()
	}
	if c.Integrator != nil {
		out.Integrator = c.Integrator.Clone()
	}
	if c.Methods != nil {
		out.Methods = c.Methods.Clone()
	}
	return &out
}

// Load reads a description file on top of base (DefaultConfig when nil).
func Load(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, base)
}

// Parse reads a description on top of base. Sections the document names
// are merged into the base sections field by field. A methods section picks
// the methods; parameters of a kind base already configures are kept
// unless the document overrides them. Model parameters carry over only
// while the model stays the same.
func Parse(data []byte, base *Config) (*Config, error) {
	if base == nil {
		base = DefaultConfig()
	}
	cfg := base.Clone()
	cfg.Parameters, cfg.Integrator, cfg.Methods = nil, nil, nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Model == base.Model {
		cfg.Parameters = conftree.Merge(base.Parameters, cfg.Parameters)
	}
	cfg.Integrator = conftree.Merge(base.Integrator, cfg.Integrator)
	cfg.Methods = mergeMethods(base.Methods, cfg.Methods)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeMethods(base, doc *conftree.Tree) *conftree.Tree {
	if doc == nil {
		return conftree.Merge(base, nil)
	}
	out := conftree.New()
	for _, kind := range doc.Keys() {
		out.Set(kind, conftree.Merge(base.Subtree(kind), doc.Subtree(kind)))
	}
	return out
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if !slices.Contains(physics.Names(), c.Model) {
		return fmt.Errorf("%w: unknown model %q", ErrInvalidConfig, c.Model)
	}
	if c.Particles < 1 {
		return fmt.Errorf("%w: particles must be positive, got %d", ErrInvalidConfig, c.Particles)
	}
	if c.Methods != nil {
		for _, kind := range c.Methods.Keys() {
			if !slices.Contains(md.MethodKinds(), kind) {
				return fmt.Errorf("%w: unknown method %q", ErrInvalidConfig, kind)
			}
		}
		if n := c.Methods.Len(); n > 1 {
			return fmt.Errorf("%w: %d methods %v, an integrator drives one", ErrInvalidConfig, n, c.Methods.Keys())
		}
	}
	return nil
}

// BuildModel creates the described model on dev and applies the
// parameters section to it all-or-nothing.
func (c *Config) BuildModel(dev compute.Device) (physics.Model, error) {
	m, err := physics.New(c.Model, c.Particles, dev)
	if err != nil {
		return nil, err
	}
	if err := physics.Configure(m, c.Parameters); err != nil {
		return nil, fmt.Errorf("config: parameters: %w", err)
	}
	return m, nil
}

// State builds the initial state for m. An n-body model without explicit
// positions starts on a ring.
func (c *Config) State(m physics.Model) (dynamo.State, error) {
	if nb, ok := m.(*physics.NBody); ok && c.InitState.Positions == nil {
		return nb.Ring(), nil
	}

	x := make(dynamo.State, m.StateDim())
	half := len(x) / 2
	if err := fill(x[:half], "positions", c.InitState.Positions); err != nil {
		return nil, err
	}
	if err := fill(x[half:], "velocities", c.InitState.Velocities); err != nil {
		return nil, err
	}
	return x, nil
}

func fill(dst []float64, name string, v any) error {
	if v == nil {
		return nil
	}
	vals := conftree.Listify(v)
	if len(vals) > len(dst) {
		return fmt.Errorf("%w: %d %s for %d coordinates", ErrInvalidConfig, len(vals), name, len(dst))
	}
	for i, raw := range vals {
		f, err := params.Float64(raw)
		if err != nil {
			return fmt.Errorf("%w: %s[%d]: %v", ErrInvalidConfig, name, i, err)
		}
		dst[i] = f.(float64)
	}
	return nil
}

// BuildIntegrator creates the integrator and its methods and applies the
// description's sections to them. Each section is applied all-or-nothing.
func (c *Config) BuildIntegrator() (*md.Integrator, error) {
	var methods []*md.Method
	if c.Methods != nil {
		for _, kind := range c.Methods.Keys() {
			m, err := md.NewMethod(kind)
			if err != nil {
				return nil, err
			}
			if sub := c.Methods.Subtree(kind); sub != nil {
				if err := m.Update(sub); err != nil {
					return nil, fmt.Errorf("config: methods: %w", err)
				}
			}
			methods = append(methods, m)
		}
	}

	integ, err := md.NewIntegrator(DefaultDt, methods...)
	if err != nil {
		return nil, err
	}
	if c.Integrator != nil {
		if err := integ.Update(c.Integrator); err != nil {
			return nil, fmt.Errorf("config: integrator: %w", err)
		}
	}
	return integ, nil
}
