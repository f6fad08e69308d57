package fsm

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is a machine described in a YAML (or JSON) document.
type Definition struct {
	Name         string
	InitialState string
	Fields       Fields
	Table        *Table
}

type definitionDocument struct {
	Name         string    `yaml:"name"`
	InitialState string    `yaml:"initial_state"`
	Fields       Fields    `yaml:"fields"`
	Transitions  yaml.Node `yaml:"transitions"`
}

// LoadDefinition reads a definition from a file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file %q: %w", path, err)
	}

	return LoadDefinitionFromBytes(data)
}

// LoadDefinitionFromFS reads a definition from a filesystem such as embed.FS.
func LoadDefinitionFromFS(fsys fs.FS, path string) (*Definition, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition from FS: %w", err)
	}

	return LoadDefinitionFromBytes(data)
}

// LoadDefinitionFromBytes parses a definition document:
//
//	name: vehicle
//	initial_state: parked
//	transitions:
//	  ignite: {parked: idling, stalled: stalled}
//	  turn_off: {all: parked}
//	  baz: {}
//
// The order of transitions and of source states is kept as written.
func LoadDefinitionFromBytes(data []byte) (*Definition, error) {
	var doc definitionDocument

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	transitions, err := decodeTransitions(&doc.Transitions)
	if err != nil {
		return nil, err
	}

	table, err := NewTable(transitions...)
	if err != nil {
		return nil, err
	}

	return &Definition{
		Name:         doc.Name,
		InitialState: doc.InitialState,
		Fields:       doc.Fields.withDefaults(),
		Table:        table,
	}, nil
}

// LoadTableFromBytes parses a document holding only a transition mapping,
// or a full definition, and returns its table.
func LoadTableFromBytes(data []byte) (*Table, error) {
	var root yaml.Node

	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}

	if value := mappingValue(node, "transitions"); value != nil {
		node = value
	}

	transitions, err := decodeTransitions(node)
	if err != nil {
		return nil, err
	}

	return NewTable(transitions...)
}

// NewMachine builds a machine from the definition. opts are applied after
// the definition's own settings.
func (d *Definition) NewMachine(opts ...Option) (*Machine, error) {
	base := []Option{
		WithName(d.Name),
		WithInitialState(d.InitialState),
		WithFields(d.Fields),
	}

	return New(d.Table, append(base, opts...)...)
}

func decodeTransitions(node *yaml.Node) ([]Transition, error) {
	if node == nil || node.Kind == 0 || isNull(node) {
		return nil, configError(ErrTableRequired)
	}

	if node.Kind != yaml.MappingNode {
		return nil, configError(fmt.Errorf("%w: transitions must be a mapping (line %d)", ErrMalformedTable, node.Line))
	}

	transitions := make([]Transition, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		edges, err := decodeEdges(key.Value, value)
		if err != nil {
			return nil, err
		}

		transitions = append(transitions, Define(key.Value, edges...))
	}

	return transitions, nil
}

func decodeEdges(transition string, node *yaml.Node) ([]Edge, error) {
	if isNull(node) {
		return nil, nil
	}

	if node.Kind != yaml.MappingNode {
		return nil, configError(fmt.Errorf("%w: transition %s must map states to states (line %d)",
			ErrMalformedTable, transition, node.Line))
	}

	edges := make([]Edge, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		from, to := node.Content[i], node.Content[i+1]

		if from.Kind != yaml.ScalarNode || to.Kind != yaml.ScalarNode {
			return nil, configError(fmt.Errorf("%w: transition %s: states must be scalars (line %d)",
				ErrMalformedTable, transition, from.Line))
		}

		edges = append(edges, Move(from.Value, to.Value))
	}

	return edges, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}

	return nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}
