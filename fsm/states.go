package fsm

import "slices"

// StateSet is the immutable set of states referenced by a Table, in the
// order they were first seen. The Wildcard is never a member.
type StateSet struct {
	names []string
	index map[string]struct{}
}

// Contains reports whether the set holds a state, by any spelling of its name.
func (s StateSet) Contains(name string) bool {
	_, ok := s.index[Underscore(name)]

	return ok
}

// Len returns the number of states.
func (s StateSet) Len() int {
	return len(s.names)
}

// Names returns the canonical state names in first-seen order.
func (s StateSet) Names() []string {
	return slices.Clone(s.names)
}

// DisplayNames returns the camelized state names ("FirstGear").
func (s StateSet) DisplayNames() []string {
	out := make([]string, len(s.names))
	for i, name := range s.names {
		out[i] = Camelize(name)
	}

	return out
}

type stateSetBuilder struct {
	names []string
	index map[string]struct{}
}

func (b *stateSetBuilder) add(name string) {
	if name == Wildcard {
		return
	}

	if b.index == nil {
		b.index = make(map[string]struct{})
	}

	if _, ok := b.index[name]; ok {
		return
	}

	b.index[name] = struct{}{}
	b.names = append(b.names, name)
}

func (b *stateSetBuilder) build() StateSet {
	if b.index == nil {
		b.index = make(map[string]struct{})
	}

	return StateSet{names: b.names, index: b.index}
}
