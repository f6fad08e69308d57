// Package visualizer generates Mermaid state diagrams from transition tables.
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-labs/lifecycle/fsm"
)

// ErrTableNil is returned when no table is given.
var ErrTableNil = errors.New("table cannot be nil")

// GenerateMermaid converts a table to a Mermaid state diagram. initialState
// may be empty.
func GenerateMermaid(table *fsm.Table, initialState string) (string, error) {
	return GenerateMermaidWithOptions(table, initialState, DefaultOptions())
}

// GenerateMermaidFromFile loads a definition file and generates its diagram.
func GenerateMermaidFromFile(path string) (string, error) {
	def, err := fsm.LoadDefinition(path)
	if err != nil {
		return "", fmt.Errorf("failed to load definition: %w", err)
	}

	return GenerateMermaid(def.Table, def.InitialState)
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
//
//nolint:varnamelen // Short names idiomatic
func GenerateMermaidWithOptions(table *fsm.Table, initialState string, opts Options) (string, error) {
	if table == nil {
		return "", ErrTableNil
	}

	states := table.States().Names()

	var sb strings.Builder

	if opts.Fenced {
		sb.WriteString("```mermaid\n")
	}

	fmt.Fprintf(&sb, "stateDiagram-v2\n    direction %s\n", opts.Direction)

	if initialState != "" {
		fmt.Fprintf(&sb, "    [*] --> %s\n", fsm.Underscore(initialState))
	}

	outgoing := make(map[string]bool, len(states))

	for _, transition := range table.Transitions() {
		exact := make(map[string]bool, len(transition.Edges))
		for _, edge := range transition.Edges {
			if !edge.IsWildcard() {
				exact[edge.From] = true
			}
		}

		for _, edge := range transition.Edges {
			if !edge.IsWildcard() {
				fmt.Fprintf(&sb, "    %s --> %s: %s\n", edge.From, edge.To, transition.Name)

				outgoing[edge.From] = true

				continue
			}

			if !opts.ExpandWildcard {
				fmt.Fprintf(&sb, "    %s --> %s: %s\n", fsm.Wildcard, edge.To, transition.Name)

				continue
			}

			for _, state := range states {
				if exact[state] {
					continue
				}

				fmt.Fprintf(&sb, "    %s --> %s: %s\n", state, edge.To, transition.Name)

				outgoing[state] = true
			}
		}
	}

	if opts.MarkTerminal {
		for _, state := range states {
			if !outgoing[state] {
				fmt.Fprintf(&sb, "    %s --> [*]\n", state)
			}
		}
	}

	if len(opts.HighlightPath) > 0 {
		sb.WriteString("\n")

		for _, state := range opts.HighlightPath {
			fmt.Fprintf(&sb, "    class %s highlighted\n", fsm.Underscore(state))
		}

		sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")
	}

	if opts.Fenced {
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}
