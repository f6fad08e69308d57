package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/logger"
	"github.com/amp-labs/lifecycle/store/memory"
	"github.com/spf13/cobra"
)

var (
	errInvalidCondition = errors.New("conditions must look like field=value")
	errNotConfirmed     = errors.New("aborted")
	errNoTransitions    = errors.New("no transition applies")
)

// withStore opens the configured store, builds the machine on it and runs fn.
func (a *app) withStore(cmd *cobra.Command, fn func(m *fsm.Machine, store recordStore) error) error {
	def, err := a.loadDefinition(cmd)
	if err != nil {
		return err
	}

	probe, err := def.NewMachine()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cmd.Context(), a.database, probe.Fields())
	if err != nil {
		return logger.AnnotateError(err, "driver", a.database.Driver, "table", a.database.Table)
	}
	defer closeStore()

	m, err := a.newMachine(cmd, fsm.WithStore(store))
	if err != nil {
		return err
	}

	return fn(m, store)
}

func parseConditions(raw []string) (fsm.Conditions, error) {
	if len(raw) == 0 {
		return nil, nil //nolint:nilnil
	}

	where := make(fsm.Conditions, len(raw))

	for _, cond := range raw {
		field, value, ok := strings.Cut(cond, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidCondition, cond)
		}

		where[field] = value
	}

	return where, nil
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a record's state, history and available transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(m *fsm.Machine, store recordStore) error {
				record, err := store.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()

				writef(out, "id: %s\n", record.ID())
				writef(out, "state: %s\n", m.CurrentState(record))

				if previous := m.PreviousState(record); previous != "" {
					writef(out, "previous state: %s\n", previous)
				}

				if at, ok := m.LastTransition(record); ok {
					writef(out, "last transition: %s\n", at.UTC().Format(time.RFC3339))
				}

				history, err := m.History(record)
				if err != nil {
					return err
				}

				if len(history) > 0 {
					writef(out, "history: %s\n", strings.Join(history.States(), " -> "))
				}

				writef(out, "transitions: %s\n", strings.Join(available(m, record), ", "))

				return nil
			})
		},
	}
}

func available(m *fsm.Machine, e fsm.Entity) []string {
	var names []string

	for _, name := range m.Transitions() {
		if m.Can(e, name) {
			names = append(names, name)
		}
	}

	return names
}

func (a *app) applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <id> [transition]",
		Short: "Apply a transition to one record and save it",
		Long: `apply loads a record, runs the transition with history tracking and
saves the state columns. Without a transition name it offers the
transitions available from the record's current state.`,
		Args: cobra.RangeArgs(1, 2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(m *fsm.Machine, store recordStore) error {
				record, err := store.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				var transition string

				if len(args) > 1 {
					transition = args[1]
				} else {
					choices := available(m, record)
					if len(choices) == 0 {
						return fmt.Errorf("%w to %s in state %s", errNoTransitions, record.ID(), m.CurrentState(record))
					}

					if transition, err = a.prompter.Select("Transition", choices...); err != nil {
						return err
					}
				}

				from := m.CurrentState(record)

				if err := m.TransitionOrFail(cmd.Context(), record, transition); err != nil {
					return err
				}

				if err := store.Save(cmd.Context(), record); err != nil {
					return logger.AnnotateError(err, "id", record.ID(), "transition", transition)
				}

				writef(cmd.OutOrStdout(), "%s: %s -> %s\n", record.ID(), from, m.CurrentState(record))

				return nil
			})
		},
	}
}

func (a *app) eachCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "each <transition> <id>...",
		Short: "Apply a transition to several records, one by one",
		Long: `each loads the given records and applies the transition to every one of
them with listeners and history, then saves the records that moved. Records
in a state the transition does not cover are reported as rejected.`,
		Args: cobra.MinimumNArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			transition, ids := args[0], args[1:]

			return a.withStore(cmd, func(m *fsm.Machine, store recordStore) error {
				records := make([]*memory.Record, 0, len(ids))
				entities := make([]fsm.Entity, 0, len(ids))

				for _, id := range ids {
					record, err := store.Load(cmd.Context(), id)
					if err != nil {
						return err
					}

					records = append(records, record)
					entities = append(entities, record)
				}

				result := m.TransitionEach(cmd.Context(), entities, transition, concurrency)

				var errs []error

				for i, res := range result.Results {
					if res.Applied {
						if err := store.Save(cmd.Context(), records[i]); err != nil {
							errs = append(errs, err)
						}
					}
				}

				writef(cmd.OutOrStdout(), "%s: %d applied, %d rejected, %d failed\n",
					fsm.Underscore(transition), result.Applied, result.Rejected, result.Failed)

				return errors.Join(append(errs, result.Err())...)
			})
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of records transitioned at once (0 uses a default)")

	return cmd
}

func (a *app) bulkCmd() *cobra.Command {
	var (
		conditions []string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "bulk <transition>",
		Short: "Apply a transition to every matching record with bulk updates",
		Long: `bulk moves every record matching --where through the transition with one
update per source state. Only the state column is written: no listeners run
and no history is recorded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			where, err := parseConditions(conditions)
			if err != nil {
				return err
			}

			if !yes {
				ok, err := a.prompter.Confirm(fmt.Sprintf("Apply %q to every matching record", args[0]))
				if err != nil {
					return err
				}

				if !ok {
					return errNotConfirmed
				}
			}

			return a.withStore(cmd, func(m *fsm.Machine, _ recordStore) error {
				affected, err := m.TransitionAll(cmd.Context(), args[0], where)
				if err != nil {
					return logger.AnnotateError(err, "transition", args[0], "affected", affected)
				}

				writef(cmd.OutOrStdout(), "%s: %d record(s) updated\n", fsm.Underscore(args[0]), affected)

				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&conditions, "where", nil, "Only update records where field=value (repeatable)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
