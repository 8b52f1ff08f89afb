package render

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Entry is one key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value any
}

// Mapping is a mapping that remembers declaration order. Stage documents
// and step bodies decode into Mappings; deeper values use map[string]any
// and []any.
type Mapping []Entry

// Get returns the first value stored under key.
func (m Mapping) Get(key string) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys lists keys in declaration order.
func (m Mapping) Keys() []string {
	keys := make([]string, len(m))
	for i, e := range m {
		keys[i] = e.Key
	}
	return keys
}

// decodeDocument converts a parsed YAML document into a Mapping whose
// values are Mappings as well, one level down.
func decodeDocument(node *yaml.Node) (Mapping, error) {
	if node == nil || node.Kind == 0 {
		return Mapping{}, nil
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return Mapping{}, nil
		}
		node = node.Content[0]
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return Mapping{}, nil
	}
	return decodeMapping(node, 1)
}

func decodeMapping(node *yaml.Node, nested int) (Mapping, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping, found %s", node.Line, kindName(node.Kind))
	}

	out := make(Mapping, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		var value any
		if nested > 0 && valNode.Kind == yaml.MappingNode {
			m, err := decodeMapping(valNode, nested-1)
			if err != nil {
				return nil, err
			}
			value = m
		} else {
			if err := valNode.Decode(&value); err != nil {
				return nil, err
			}
			value = Normalize(value)
		}
		out = append(out, Entry{Key: keyNode.Value, Value: value})
	}
	return out, nil
}

// Normalize rewrites map[any]any values produced for non-string keys into
// map[string]any so argument lookups see a single mapping type.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = Normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = Normalize(val)
		}
		return t
	default:
		return v
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "a document"
	}
}
