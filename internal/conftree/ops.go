package conftree

import (
	"fmt"
	"strings"
)

// LeafError reports a failure of a leaf function at a key path.
type LeafError struct {
	Path []string
	Err  error
}

func (e *LeafError) Error() string {
	return fmt.Sprintf("conftree: %s: %v", strings.Join(e.Path, "."), e.Err)
}

func (e *LeafError) Unwrap() error {
	return e.Err
}

// Map returns a tree with the same keys as t where every leaf value v is
// replaced by f(v). If f fails on any leaf, Map returns a *LeafError and no
// tree.
func Map(t *Tree, f func(v any) (any, error)) (*Tree, error) {
	return mapTree(t, f, nil)
}

func mapTree(t *Tree, f func(any) (any, error), path []string) (*Tree, error) {
	out := New()
	for _, k := range t.keys {
		switch n := t.vals[k].(type) {
		case *Tree:
			sub, err := mapTree(n, f, childPath(path, k))
			if err != nil {
				return nil, err
			}
			out.keys = append(out.keys, k)
			out.vals[k] = sub
		case Scalar:
			v, err := f(n.Value)
			if err != nil {
				return nil, &LeafError{Path: childPath(path, k), Err: err}
			}
			out.keys = append(out.keys, k)
			out.vals[k] = Scalar{Value: v}
		default:
			panic(fmt.Sprintf("conftree: unexpected node %T", n))
		}
	}
	return out, nil
}

// Fold combines every leaf value into an accumulator, depth first in
// insertion order.
func Fold[A any](t *Tree, f func(v any, acc A) A, init A) A {
	acc := init
	for _, k := range t.keys {
		switch n := t.vals[k].(type) {
		case *Tree:
			acc = Fold(n, f, acc)
		case Scalar:
			acc = f(n.Value, acc)
		}
	}
	return acc
}

// FoldKeys is Fold over the keys of the leaves instead of their values.
func FoldKeys[A any](t *Tree, f func(key string, acc A) A, init A) A {
	acc := init
	for _, k := range t.keys {
		switch n := t.vals[k].(type) {
		case *Tree:
			acc = FoldKeys(n, f, acc)
		case Scalar:
			acc = f(k, acc)
		}
	}
	return acc
}

// Walk calls fn for every leaf with its full key path. The path slice is
// only valid for the duration of the call. Walk stops at the first error.
func Walk(t *Tree, fn func(path []string, v any) error) error {
	return walk(t, fn, nil)
}

func walk(t *Tree, fn func([]string, any) error, path []string) error {
	for _, k := range t.keys {
		p := append(path, k)
		switch n := t.vals[k].(type) {
		case *Tree:
			if err := walk(n, fn, p); err != nil {
				return err
			}
		case Scalar:
			if err := fn(p, n.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func childPath(path []string, key string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = key
	return out
}

// Merge returns a copy of base with overlay laid over it. Sub-trees present
// in both are merged recursively; any other overlay value replaces the base
// value, and base keys keep their position. Either tree may be nil.
func Merge(base, overlay *Tree) *Tree {
	if base == nil {
		if overlay == nil {
			return nil
		}
		return overlay.Clone()
	}
	out := base.Clone()
	if overlay == nil {
		return out
	}
	for _, k := range overlay.keys {
		over := overlay.vals[k]
		if sub, ok := over.(*Tree); ok {
			if cur, ok := out.vals[k].(*Tree); ok {
				out.vals[k] = Merge(cur, sub)
				continue
			}
		}
		out.Set(k, over)
	}
	return out
}
