package main

import (
	"fmt"
	"slices"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/lifecycle/cli"
	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/fsm/visualizer"
	"github.com/spf13/cobra"
)

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the definition",
		Long: `check validates the definition document against its JSON Schema, which
rejects unknown keys, and then builds the machine from it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := fsm.ValidateDefinitionFile(a.definitionPath); err != nil {
				return err
			}

			m, err := a.newMachine(cmd)
			if err != nil {
				return err
			}

			writef(cmd.OutOrStdout(), "ok: %s (%d transitions, %d states", displayName(m), len(m.Transitions()), len(m.States()))

			if m.InitialState() != "" {
				writef(cmd.OutOrStdout(), ", initial %s", m.InitialState())
			}

			writeln(cmd.OutOrStdout(), ")")

			return nil
		},
	}
}

func displayName(m *fsm.Machine) string {
	if m.Name() == "" {
		return "machine"
	}

	return m.Name()
}

func (a *app) statesCmd() *cobra.Command {
	var (
		order   string
		display bool
	)

	cmd := &cobra.Command{
		Use:   "states",
		Short: "List every state of the machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := a.loadDefinition(cmd)
			if err != nil {
				return err
			}

			states := def.Table.States()

			names := states.Names()
			if display {
				names = states.DisplayNames()
			}

			switch order {
			case "declared":
			case "natural":
				names = slices.Clone(names)
				natsort.Sort(names)
			default:
				return fmt.Errorf("unknown sort order %q", order) //nolint:err113
			}

			for _, name := range names {
				writeln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&order, "sort", "declared", "Order of the list: declared or natural")
	cmd.Flags().BoolVar(&display, "display", false, "Print display names instead of canonical names")

	return cmd
}

func formatEdges(transition fsm.Transition) string {
	if len(transition.Edges) == 0 {
		return "(none)"
	}

	parts := make([]string, 0, len(transition.Edges))

	for _, edge := range transition.Edges {
		parts = append(parts, edge.From+" -> "+edge.To)
	}

	return strings.Join(parts, ", ")
}

func (a *app) transitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transitions",
		Short: "List every transition with its source to target mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := a.loadDefinition(cmd)
			if err != nil {
				return err
			}

			for _, transition := range def.Table.Transitions() {
				writef(cmd.OutOrStdout(), "%s: %s\n", transition.Name, formatEdges(transition))
			}

			return nil
		},
	}
}

func (a *app) describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Summarize the machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.newMachine(cmd)
			if err != nil {
				return err
			}

			title := fsm.Camelize(displayName(m))
			if m.InitialState() != "" {
				title += "\ninitial state: " + m.InitialState()
			}

			out := cmd.OutOrStdout()

			writef(out, "%s", cli.BannerAutoWidth(title, cli.AlignCenter))

			writef(out, "States (%d):\n", len(m.States()))

			for _, state := range m.States() {
				writef(out, "  %s\n", state)
			}

			writef(out, "Transitions (%d):\n", len(m.Transitions()))

			for _, transition := range m.Table().Transitions() {
				writef(out, "  %s: %s\n", transition.Name, formatEdges(transition))
			}

			return nil
		},
	}
}

func (a *app) dotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dot",
		Short: "Print the machine as a Graphviz digraph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := a.loadDefinition(cmd)
			if err != nil {
				return err
			}

			writeln(cmd.OutOrStdout(), def.Table.ToDot())

			return nil
		},
	}
}

func (a *app) mermaidCmd() *cobra.Command {
	var (
		direction string
		noFence   bool
		collapse  bool
		highlight []string
	)

	cmd := &cobra.Command{
		Use:   "mermaid",
		Short: "Print the machine as a Mermaid state diagram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := a.loadDefinition(cmd)
			if err != nil {
				return err
			}

			opts := visualizer.DefaultOptions().
				WithDirection(direction).
				WithFenced(!noFence).
				WithExpandWildcard(!collapse).
				WithHighlightPath(highlight)

			diagram, err := visualizer.GenerateMermaidWithOptions(def.Table, def.InitialState, opts)
			if err != nil {
				return err
			}

			writef(cmd.OutOrStdout(), "%s", diagram)

			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "LR", "Diagram direction: LR or TD")
	cmd.Flags().BoolVar(&noFence, "no-fence", false, "Omit the ```mermaid code fence")
	cmd.Flags().BoolVar(&collapse, "collapse-wildcard", false, "Draw wildcard transitions from a single \"all\" node")
	cmd.Flags().StringSliceVar(&highlight, "highlight", nil, "States to highlight")

	return cmd
}
