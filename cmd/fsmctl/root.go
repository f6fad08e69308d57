package main

import (
	"fmt"
	"io"

	"github.com/amp-labs/lifecycle/cli"
	"github.com/amp-labs/lifecycle/config"
	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/logger"
	"github.com/amp-labs/lifecycle/telemetry"
	"github.com/spf13/cobra"
)

const defaultDefinition = "lifecycle.yaml"

// app is the state shared by every subcommand of one invocation.
type app struct {
	definitionPath string
	envFile        string

	database config.Database
	graphviz config.Graphviz
	prompter cli.Prompter

	definition *fsm.Definition
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "fsmctl",
		Short: "Inspect and drive declarative state machines",
		Long: `fsmctl loads a state machine definition (a YAML document listing
transitions as source to target state mappings) and can validate it, export
it as DOT or Mermaid, render it with Graphviz, and apply its transitions to
records held in SQLite, PostgreSQL, Redis or MongoDB.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.definitionPath, "definition", "f", defaultDefinition,
		"Path to the machine definition file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "",
		"Read configuration from this dotenv file (process environment wins)")

	root.AddCommand(
		a.checkCmd(),
		a.describeCmd(),
		a.statesCmd(),
		a.transitionsCmd(),
		a.dotCmd(),
		a.mermaidCmd(),
		a.renderCmd(),
		a.showCmd(),
		a.applyCmd(),
		a.eachCmd(),
		a.bulkCmd(),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var logging config.Logging

	if err := load(a, &logging); err != nil {
		return err
	}

	if err := load(a, &a.database); err != nil {
		return err
	}

	if err := load(a, &a.graphviz); err != nil {
		return err
	}

	opts, err := logger.OptionsFromConfig("fsmctl", logging)
	if err != nil {
		return err
	}

	if logging.Output == "" || logging.Output == "stderr" {
		opts.Output = cmd.ErrOrStderr()
	}

	logger.ConfigureLoggingWithOptions(opts)

	tcfg, err := telemetry.LoadConfigFromEnv(cmd.Context(), "local")
	if err != nil {
		return err
	}

	return telemetry.Initialize(cmd.Context(), tcfg)
}

func load[T any](a *app, v *T) error {
	if a.envFile != "" {
		return config.LoadFrom(v, a.envFile)
	}

	return config.Load(v)
}

// loadDefinition reads the definition once and tags the command context with
// the machine name.
func (a *app) loadDefinition(cmd *cobra.Command) (*fsm.Definition, error) {
	if a.definition != nil {
		return a.definition, nil
	}

	def, err := fsm.LoadDefinition(a.definitionPath)
	if err != nil {
		return nil, err
	}

	if def.Name != "" {
		cmd.SetContext(logger.WithMachine(cmd.Context(), def.Name))
	}

	a.definition = def

	return def, nil
}

// newMachine builds the machine of the definition with logging and the
// given extra options.
func (a *app) newMachine(cmd *cobra.Command, opts ...fsm.Option) (*fsm.Machine, error) {
	def, err := a.loadDefinition(cmd)
	if err != nil {
		return nil, err
	}

	base := []fsm.Option{fsm.WithLogger(fsm.NewSlogLogger(logger.Get(cmd.Context())))}

	return def.NewMachine(append(base, opts...)...)
}

func writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
