package conftree

import (
	"fmt"
	"sort"
	"strings"
)

// Node is a value stored in a Tree: a Scalar or a *Tree.
type Node interface {
	node()
}

// Scalar is a leaf value.
type Scalar struct {
	Value any
}

func (Scalar) node() {}

// Tree maps string keys to nodes.
type Tree struct {
	keys []string
	vals map[string]Node
}

func (*Tree) node() {}

func New() *Tree {
	return &Tree{vals: make(map[string]Node)}
}

// FromMap builds a tree from nested maps. Keys at each level are inserted
// in sorted order since map iteration order is random.
func FromMap(m map[string]any) *Tree {
	t := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Set(k, m[k])
	}
	return t
}

// Set stores v under key. Nested maps become sub-trees and *Tree values are
// deep-copied. Re-setting an existing key keeps its original position.
func (t *Tree) Set(key string, v any) {
	var n Node
	switch val := v.(type) {
	case *Tree:
		if val == nil {
			n = New()
		} else {
			n = val.Clone()
		}
	case map[string]any:
		n = FromMap(val)
	case Scalar:
		n = val
	default:
		n = Scalar{Value: v}
	}
	if t.vals == nil {
		t.vals = make(map[string]Node)
	}
	if _, ok := t.vals[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = n
}

// Get returns the node stored directly under key.
func (t *Tree) Get(key string) (Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.vals[key]
	return n, ok
}

// Delete removes key; it reports whether the key was present.
func (t *Tree) Delete(key string) bool {
	if _, ok := t.vals[key]; !ok {
		return false
	}
	delete(t.vals, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return true
}

// Lookup follows path through nested trees.
func (t *Tree) Lookup(path ...string) (Node, bool) {
	var cur Node = t
	for _, key := range path {
		sub, ok := cur.(*Tree)
		if !ok {
			return nil, false
		}
		if cur, ok = sub.Get(key); !ok {
			return nil, false
		}
	}
	return cur, true
}

// Subtree returns the tree at path, or nil when the path is missing or ends
// at a leaf.
func (t *Tree) Subtree(path ...string) *Tree {
	n, ok := t.Lookup(path...)
	if !ok {
		return nil
	}
	sub, _ := n.(*Tree)
	return sub
}

// Value returns the scalar value at path.
func (t *Tree) Value(path ...string) (any, bool) {
	n, ok := t.Lookup(path...)
	if !ok {
		return nil, false
	}
	s, ok := n.(Scalar)
	if !ok {
		return nil, false
	}
	return s.Value, true
}

// Keys returns the keys in insertion order.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

func (t *Tree) Clone() *Tree {
	out := &Tree{
		keys: make([]string, len(t.keys)),
		vals: make(map[string]Node, len(t.vals)),
	}
	copy(out.keys, t.keys)
	for k, n := range t.vals {
		if sub, ok := n.(*Tree); ok {
			out.vals[k] = sub.Clone()
		} else {
			out.vals[k] = n
		}
	}
	return out
}

// ToMap converts the tree back into nested maps.
func (t *Tree) ToMap() map[string]any {
	out := make(map[string]any, len(t.keys))
	for _, k := range t.keys {
		switch n := t.vals[k].(type) {
		case *Tree:
			out[k] = n.ToMap()
		case Scalar:
			out[k] = n.Value
		}
	}
	return out
}

func (t *Tree) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		switch n := t.vals[k].(type) {
		case *Tree:
			fmt.Fprintf(&b, "%s: %s", k, n.String())
		case Scalar:
			fmt.Fprintf(&b, "%s: %v", k, n.Value)
		}
	}
	b.WriteByte('}')
	return b.String()
}
