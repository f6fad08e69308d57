package fsm

import (
	"fmt"
	"strings"
)

const dotHeader = "digraph finite_state_machine {\n" +
	"\trankdir=LR\n" +
	"\tfontsize=12\n" +
	"\tnode [shape = circle];\n"

// ToDot renders the table as a Graphviz digraph with one labeled edge per
// source/target pair, in declaration order. Wildcard edges are drawn from a
// node named "all". The output can be turned into an image with
// `dot -Tpng -ofsm.png`.
func (t *Table) ToDot() string {
	var sb strings.Builder

	sb.WriteString(dotHeader)

	for _, transition := range t.transitions {
		for _, edge := range transition.edges {
			fmt.Fprintf(&sb, "\t%s -> %s [ label = \"%s\" ];\n", edge.From, edge.To, transition.name)
		}
	}

	sb.WriteString("}")

	return sb.String()
}

// ToDot renders the machine's table; see Table.ToDot.
func (m *Machine) ToDot() string {
	return m.table.ToDot()
}
