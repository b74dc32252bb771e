package conftree

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a mapping node, keeping document key order.
// Sequences and scalars become leaves.
func (t *Tree) UnmarshalYAML(value *yaml.Node) error {
	for value.Kind == yaml.DocumentNode || value.Kind == yaml.AliasNode {
		if value.Kind == yaml.AliasNode {
			value = value.Alias
			continue
		}
		if len(value.Content) == 0 {
			*t = *New()
			return nil
		}
		value = value.Content[0]
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("conftree: line %d: expected mapping, got %s", value.Line, kindName(value.Kind))
	}

	out := New()
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, valNode := value.Content[i], value.Content[i+1]
		var key string
		if err := keyNode.Decode(&key); err != nil {
			return fmt.Errorf("conftree: line %d: %w", keyNode.Line, err)
		}
		if valNode.Kind == yaml.AliasNode {
			valNode = valNode.Alias
		}
		if valNode.Kind == yaml.MappingNode {
			sub := New()
			if err := sub.UnmarshalYAML(valNode); err != nil {
				return err
			}
			out.Set(key, sub)
			continue
		}
		var v any
		if err := valNode.Decode(&v); err != nil {
			return fmt.Errorf("conftree: key %q: %w", key, err)
		}
		out.Set(key, v)
	}
	*t = *out
	return nil
}

// MarshalYAML encodes the tree as a mapping in insertion order.
func (t *Tree) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range t.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		var valNode yaml.Node
		switch v := t.vals[k].(type) {
		case *Tree:
			enc, err := v.MarshalYAML()
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, keyNode, enc.(*yaml.Node))
			continue
		case Scalar:
			if err := valNode.Encode(v.Value); err != nil {
				return nil, fmt.Errorf("conftree: key %q: %w", k, err)
			}
		}
		n.Content = append(n.Content, keyNode, &valNode)
	}
	return n, nil
}

// Decode parses a YAML document into a tree.
func Decode(data []byte) (*Tree, error) {
	t := New()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, err
	}
	return t, nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	default:
		return "node"
	}
}
