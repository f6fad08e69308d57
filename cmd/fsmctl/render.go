package main

import (
	"github.com/amp-labs/lifecycle/graphviz"
	"github.com/amp-labs/lifecycle/logger"
	"github.com/amp-labs/lifecycle/sanitize"
	"github.com/spf13/cobra"
)

func (a *app) renderCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the machine to an image with Graphviz",
		Long: `render pipes the DOT description of the machine through the Graphviz
"dot" program. The program is looked up on PATH unless FSM_DOT_BIN names it.
Without --output the image is written to the current directory, named after
the machine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.newMachine(cmd)
			if err != nil {
				return err
			}

			if output == "" {
				output = defaultOutput(displayName(m), format)
			}

			renderer := graphviz.NewRenderer(
				graphviz.WithBinary(a.graphviz.Binary),
				graphviz.WithLogger(logger.Get(cmd.Context())),
			)

			if err := renderer.RenderGraph(cmd.Context(), m, format, output); err != nil {
				return logger.AnnotateError(err, "format", format, "output", output)
			}

			writef(cmd.OutOrStdout(), "wrote %s\n", output)

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", graphviz.FormatPNG, "Output format understood by dot (png, svg, pdf, ...)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to <machine>.<format>)")

	return cmd
}

func defaultOutput(machine, format string) string {
	name := sanitize.FileName(machine)
	if name == "" {
		name = "machine"
	}

	return name + "." + format
}
