// Package control binds parameter dictionaries to backend handles through
// an attach/detach lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/dynbind/internal/conftree"
	"github.com/san-kum/dynbind/internal/ctxlog"
	"github.com/san-kum/dynbind/internal/params"
	"github.com/san-kum/dynbind/internal/sim"
)

type State int

const (
	Detached State = iota
	Attached
)

func (s State) String() string {
	if s == Attached {
		return "attached"
	}
	return "detached"
}

// Object owns a parameter dictionary and, while attached, the one backend
// handle built for it. It is not safe for concurrent use.
type Object struct {
	name  string
	dict  *params.Dict
	build Builder

	handle  Handle
	carried *Variables
	logger  *slog.Logger
}

func New(name string, dict *params.Dict, build Builder) *Object {
	if dict == nil {
		dict = params.MustNew()
	}
	return &Object{name: name, dict: dict, build: build}
}

func (o *Object) Name() string { return o.name }

func (o *Object) State() State {
	if o.handle != nil {
		return Attached
	}
	return Detached
}

func (o *Object) Attached() bool { return o.handle != nil }

// Handle returns the backend handle while attached.
func (o *Object) Handle() (Handle, bool) {
	return o.handle, o.handle != nil
}

// Attach builds the handle against sc, pushes every set or defaulted
// parameter into it and restores carried internal variables. On any
// failure the object stays detached and no handle is kept.
func (o *Object) Attach(ctx context.Context, sc *sim.Context) error {
	if o.handle != nil {
		return fmt.Errorf("%s: %w", o.name, ErrAlreadyAttached)
	}
	if missing := o.dict.Missing(); len(missing) > 0 {
		return fmt.Errorf("attach %s: %w", o.name, &params.UnsetFieldError{Field: missing[0]})
	}

	h, err := o.build(ctx, sc)
	if err == nil && h == nil {
		err = ErrNoHandle
	}
	if err != nil {
		return &BackendConstructionError{Object: o.name, Err: err}
	}
	if err := o.dict.Apply(h); err != nil {
		_ = h.Release()
		return fmt.Errorf("attach %s: %w", o.name, err)
	}

	o.logger = ctxlog.FromContext(ctx).With("object", o.name)
	if s, ok := h.(Stateful); ok && o.carried != nil {
		if !s.SetVariables(o.carried.Clone()) {
			o.logger.Warn("discarding incompatible internal state", "kind", o.carried.Kind, "count", len(o.carried.Values))
		}
	}

	o.handle = h
	o.logger.Debug("attached", "handle", conftree.ToCamelCase(o.name))
	return nil
}

// Detach keeps the handle's internal variables for the next Attach and
// releases it. The object is detached even when release fails.
func (o *Object) Detach() error {
	if o.handle == nil {
		return fmt.Errorf("%s: %w", o.name, ErrNotAttached)
	}
	if s, ok := o.handle.(Stateful); ok {
		v := s.Variables().Clone()
		o.carried = &v
	}

	h := o.handle
	o.handle = nil
	if err := h.Release(); err != nil {
		return fmt.Errorf("detach %s: %w", o.name, err)
	}
	o.logger.Debug("detached")
	return nil
}

// ResetInternalState drops carried variables and resets the live handle's,
// so the next step starts from a clean slate.
func (o *Object) ResetInternalState() {
	o.carried = nil
	if s, ok := o.handle.(Stateful); ok {
		s.ResetVariables()
	}
}

// Variables returns the live internal variables when attached, otherwise
// the ones carried over from the last detach.
func (o *Object) Variables() (Variables, bool) {
	if s, ok := o.handle.(Stateful); ok {
		return s.Variables().Clone(), true
	}
	if o.carried != nil {
		return o.carried.Clone(), true
	}
	return Variables{}, false
}

func (o *Object) Get(name string) (any, error) {
	return o.dict.Get(name)
}

// IsSet reports whether name was assigned rather than defaulted.
func (o *Object) IsSet(name string) bool { return o.dict.IsSet(name) }

// Set validates v and, when attached, forwards the normalized value to the
// handle before storing it. A rejected value leaves the old one in place.
func (o *Object) Set(name string, v any) error {
	out, err := o.dict.Validate(name, v)
	if err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}
	if o.handle != nil {
		if err := o.handle.SetParam(name, out); err != nil {
			return fmt.Errorf("%s: set %q: %w", o.name, name, err)
		}
	}
	return o.dict.Set(name, out)
}

// Update assigns every leaf of t. Nothing changes unless every value
// validates and, when attached, the handle accepts all of them.
func (o *Object) Update(t *conftree.Tree) error {
	next := o.dict.Clone()
	if err := next.Update(t); err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}

	if o.handle != nil {
		for i, key := range t.Keys() {
			v, _ := next.Get(key)
			if err := o.handle.SetParam(key, v); err != nil {
				o.restore(t.Keys()[:i])
				return fmt.Errorf("%s: set %q: %w", o.name, key, err)
			}
		}
	}
	o.dict = next
	return nil
}

// restore pushes the committed values of keys back to the handle. A field
// that was never assigned gets its default again; an attached object has
// no field without one, since Attach refuses missing fields.
func (o *Object) restore(keys []string) {
	for _, key := range keys {
		v, err := o.dict.Get(key)
		if err == nil {
			err = o.handle.SetParam(key, v)
		}
		if err != nil {
			o.logger.Warn("restore after failed update", "field", key, "err", err)
		}
	}
}

func (o *Object) Snapshot() *conftree.Tree { return o.dict.Snapshot() }

// Fields returns the parameter schema.
func (o *Object) Fields() []params.Field { return o.dict.Fields() }
