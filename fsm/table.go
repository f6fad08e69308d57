package fsm

import (
	"fmt"
	"slices"
)

// Edge maps one source state (or the Wildcard) to a target state.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to"   yaml:"to"`
}

// Move is shorthand for Edge{From: from, To: to}.
func Move(from, to string) Edge {
	return Edge{From: from, To: to}
}

// Transition declares a named move and its source to target mapping.
// An empty Edges list is legal: the transition exists but never resolves.
type Transition struct {
	Name  string `json:"name"  yaml:"name"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Define declares a transition.
func Define(name string, edges ...Edge) Transition {
	return Transition{Name: name, Edges: edges}
}

// IsWildcard reports whether the edge applies to any state.
func (e Edge) IsWildcard() bool {
	return e.From == Wildcard
}

// compiledTransition is the validated, canonical form of a Transition.
type compiledTransition struct {
	name    string
	edges   []Edge
	targets map[string]string
}

// Table is the immutable transition table. Declaration order is preserved
// for transitions and for source states within a transition.
type Table struct {
	transitions []compiledTransition
	index       map[string]int
	states      StateSet
}

// NewTable validates and canonicalizes the given transitions. All names are
// stored in their Underscore form.
func NewTable(transitions ...Transition) (*Table, error) {
	if len(transitions) == 0 {
		return nil, configError(ErrTableRequired)
	}

	table := &Table{
		transitions: make([]compiledTransition, 0, len(transitions)),
		index:       make(map[string]int, len(transitions)),
	}

	var states stateSetBuilder

	for _, transition := range transitions {
		name := Underscore(transition.Name)
		if name == "" {
			return nil, configError(ErrTransitionNameRequired)
		}

		if _, exists := table.index[name]; exists {
			return nil, configError(fmt.Errorf("%w: %s", ErrDuplicateTransition, name))
		}

		compiled := compiledTransition{
			name:    name,
			edges:   make([]Edge, 0, len(transition.Edges)),
			targets: make(map[string]string, len(transition.Edges)),
		}

		for _, edge := range transition.Edges {
			from, to := Underscore(edge.From), Underscore(edge.To)

			if from == "" || to == "" {
				return nil, configError(fmt.Errorf("transition %s: %w", name, ErrStateNameRequired))
			}

			if to == Wildcard {
				return nil, configError(fmt.Errorf("transition %s: %w", name, ErrWildcardTarget))
			}

			if _, exists := compiled.targets[from]; exists {
				return nil, configError(fmt.Errorf("transition %s: %w: %s", name, ErrDuplicateSourceState, from))
			}

			compiled.targets[from] = to
			compiled.edges = append(compiled.edges, Edge{From: from, To: to})

			states.add(from)
			states.add(to)
		}

		table.index[name] = len(table.transitions)
		table.transitions = append(table.transitions, compiled)
	}

	table.states = states.build()

	return table, nil
}

// MustTable is like NewTable but panics on error. Intended for tables
// declared as package-level literals.
func MustTable(transitions ...Transition) *Table {
	table, err := NewTable(transitions...)
	if err != nil {
		panic(err)
	}

	return table
}

// Len returns the number of declared transitions.
func (t *Table) Len() int {
	return len(t.transitions)
}

// Names returns the canonical transition names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.transitions))
	for i, transition := range t.transitions {
		names[i] = transition.name
	}

	return names
}

// Transitions returns a copy of the canonical declarations.
func (t *Table) Transitions() []Transition {
	out := make([]Transition, len(t.transitions))
	for i, transition := range t.transitions {
		out[i] = Transition{Name: transition.name, Edges: slices.Clone(transition.edges)}
	}

	return out
}

// Lookup returns the declaration of a transition by any spelling of its name.
func (t *Table) Lookup(name string) (Transition, bool) {
	compiled, ok := t.lookup(Underscore(name))
	if !ok {
		return Transition{}, false
	}

	return Transition{Name: compiled.name, Edges: slices.Clone(compiled.edges)}, true
}

// Has reports whether a transition is declared.
func (t *Table) Has(name string) bool {
	_, ok := t.index[Underscore(name)]

	return ok
}

// States returns the derived StateSet.
func (t *Table) States() StateSet {
	return t.states
}

// Resolve returns the target of a transition for the given current state.
// An exact source mapping always wins over the Wildcard.
func (t *Table) Resolve(transition, current string) (string, bool) {
	compiled, ok := t.lookup(Underscore(transition))
	if !ok {
		return "", false
	}

	current = Underscore(current)

	if to, ok := compiled.targets[current]; ok {
		return to, true
	}

	if to, ok := compiled.targets[Wildcard]; ok {
		return to, true
	}

	return "", false
}

func (t *Table) lookup(canonical string) (compiledTransition, bool) {
	idx, ok := t.index[canonical]
	if !ok {
		return compiledTransition{}, false
	}

	return t.transitions[idx], true
}
