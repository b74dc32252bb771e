// Package conftree provides nested configuration trees for simulation
// descriptions.
//
// A tree is a closed variant: every value is either a [Scalar] leaf or a
// nested [*Tree]. Trees never contain cycles; inserting a sub-tree stores a
// deep copy of it.
//
//   - [Map]: transform every leaf, keeping the key structure
//   - [Fold], [FoldKeys]: reduce every leaf (or leaf key) into an accumulator
//   - [Walk]: visit leaves together with their key path
//
// Iteration follows insertion order, so repeated traversals of the same
// tree always visit leaves in the same sequence. Trees decoded from YAML
// keep document order.
//
// # Example
//
//	t := conftree.FromMap(map[string]any{
//	    "integrator": map[string]any{"dt": 0.005, "aniso": "auto"},
//	})
//	sum := conftree.Fold(t, func(v any, acc int) int { return acc + 1 }, 0)
package conftree
