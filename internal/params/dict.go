package params

import (
	"errors"
	"fmt"

	"github.com/san-kum/dynbind/internal/conftree"
)

// Field declares one named parameter.
type Field struct {
	Name     string
	Validate Validator

	// Default is returned for a field that was never assigned. It is
	// trusted and never passed through Validate.
	Default    any
	HasDefault bool
}

type FieldOption func(*Field)

// WithDefault marks v as the explicit default of the field.
func WithDefault(v any) FieldOption {
	return func(f *Field) {
		f.Default = v
		f.HasDefault = true
	}
}

func NewField(name string, validate Validator, opts ...FieldOption) Field {
	f := Field{Name: name, Validate: validate}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Writer receives parameter values by name, typically a backend handle.
type Writer interface {
	SetParam(name string, value any) error
}

type slot struct {
	field Field
	value any
	set   bool
}

// Dict is a set of uniquely named, validated parameters. It is not safe
// for concurrent use.
type Dict struct {
	order []string
	slots map[string]*slot
}

func New(fields ...Field) (*Dict, error) {
	d := &Dict{slots: make(map[string]*slot, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			return nil, errors.New("params: field with empty name")
		}
		if _, dup := d.slots[f.Name]; dup {
			return nil, fmt.Errorf("params: duplicate field %q", f.Name)
		}
		d.order = append(d.order, f.Name)
		d.slots[f.Name] = &slot{field: f}
	}
	return d, nil
}

// MustNew is New for schemas fixed at compile time.
func MustNew(fields ...Field) *Dict {
	d, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return d
}

// Clone returns an independent copy sharing the schema.
func (d *Dict) Clone() *Dict {
	c := &Dict{order: d.Names(), slots: make(map[string]*slot, len(d.slots))}
	for name, s := range d.slots {
		cp := *s
		c.slots[name] = &cp
	}
	return c
}

// Fields returns the schema in declaration order.
func (d *Dict) Fields() []Field {
	out := make([]Field, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.slots[name].field)
	}
	return out
}

// Names returns field names in declaration order.
func (d *Dict) Names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

func (d *Dict) Has(name string) bool {
	_, ok := d.slots[name]
	return ok
}

// IsSet reports whether name was assigned, as opposed to defaulted.
func (d *Dict) IsSet(name string) bool {
	s, ok := d.slots[name]
	return ok && s.set
}

func (d *Dict) Get(name string) (any, error) {
	s, ok := d.slots[name]
	if !ok {
		return nil, &UnknownFieldError{Field: name}
	}
	if s.set {
		return s.value, nil
	}
	if s.field.HasDefault {
		return s.field.Default, nil
	}
	return nil, &UnsetFieldError{Field: name}
}

// Validate runs the validator of name against v without storing anything.
func (d *Dict) Validate(name string, v any) (any, error) {
	s, ok := d.slots[name]
	if !ok {
		return nil, &UnknownFieldError{Field: name}
	}
	if s.field.Validate == nil {
		return v, nil
	}
	out, err := s.field.Validate(v)
	if err != nil {
		return nil, &ValidationError{Field: name, Value: v, Err: err}
	}
	return out, nil
}

// Set validates v and stores the normalized value. On failure the previous
// value is kept.
func (d *Dict) Set(name string, v any) error {
	out, err := d.Validate(name, v)
	if err != nil {
		return err
	}
	s := d.slots[name]
	s.value = out
	s.set = true
	return nil
}

// Clear forgets an assigned value so the field falls back to its default.
func (d *Dict) Clear(name string) error {
	s, ok := d.slots[name]
	if !ok {
		return &UnknownFieldError{Field: name}
	}
	s.value = nil
	s.set = false
	return nil
}

// Missing returns fields that are neither assigned nor defaulted.
func (d *Dict) Missing() []string {
	var out []string
	for _, name := range d.order {
		s := d.slots[name]
		if !s.set && !s.field.HasDefault {
			out = append(out, name)
		}
	}
	return out
}

// Apply pushes every assigned or defaulted field to w. Fields are
// independent of each other; declaration order is used only so that runs
// are reproducible.
func (d *Dict) Apply(w Writer) error {
	for _, name := range d.order {
		v, err := d.Get(name)
		if errors.Is(err, ErrUnset) {
			continue
		}
		if err != nil {
			return err
		}
		if err := w.SetParam(name, v); err != nil {
			return fmt.Errorf("apply %q: %w", name, err)
		}
	}
	return nil
}

// Update assigns every leaf of t. All values are validated before any is
// stored, so a failing update changes nothing.
func (d *Dict) Update(t *conftree.Tree) error {
	staged := make(map[string]any, t.Len())
	for _, key := range t.Keys() {
		n, _ := t.Get(key)
		leaf, ok := n.(conftree.Scalar)
		if !ok {
			if !d.Has(key) {
				return &UnknownFieldError{Field: key}
			}
			return &ValidationError{Field: key, Value: n, Err: errors.New("expected a scalar, got a mapping")}
		}
		out, err := d.Validate(key, leaf.Value)
		if err != nil {
			return err
		}
		staged[key] = out
	}
	for _, key := range t.Keys() {
		s := d.slots[key]
		s.value = staged[key]
		s.set = true
	}
	return nil
}

// Snapshot returns the effective values (assigned or defaulted) as a tree.
func (d *Dict) Snapshot() *conftree.Tree {
	t := conftree.New()
	for _, name := range d.order {
		if v, err := d.Get(name); err == nil {
			t.Set(name, v)
		}
	}
	return t
}

func (d *Dict) Float(name string) (float64, error) {
	v, err := d.Get(name)
	if err != nil {
		return 0, err
	}
	return toFloat(v)
}

func (d *Dict) Int(name string) (int, error) {
	v, err := d.Get(name)
	if err != nil {
		return 0, err
	}
	n, err := Int(v)
	if err != nil {
		return 0, err
	}
	return n.(int), nil
}

func (d *Dict) String(name string) (string, error) {
	v, err := d.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q holds %T, not a string", name, v)
	}
	return s, nil
}

func (d *Dict) Bool(name string) (bool, error) {
	v, err := d.Get(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q holds %T, not a bool", name, v)
	}
	return b, nil
}
