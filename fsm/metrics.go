package fsm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric outcome constants.
const (
	outcomeApplied  = "applied"
	outcomeRejected = "rejected"
	outcomeError    = "error"

	unknownLabel = "unknown"
)

// Metric definitions with appropriate labels.
var (
	// transitionsTotal counts transition attempts by outcome (applied, rejected or error).
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_transitions_total",
		Help: "Total number of transition attempts by machine, transition, source state and outcome",
	}, []string{"machine", "transition", "from_state", "outcome"})

	// stateEntriesTotal counts successful entries into each state.
	stateEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_state_entries_total",
		Help: "Total number of times an entity entered a state by machine and state",
	}, []string{"machine", "state"})

	// bulkRowsTotal counts rows moved by TransitionAll.
	bulkRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_bulk_rows_total",
		Help: "Total number of rows moved by bulk transitions by machine, transition and outcome",
	}, []string{"machine", "transition", "outcome"})

	// bulkDuration tracks how long bulk transitions take end to end.
	bulkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fsm_bulk_duration_seconds",
		Help:    "Duration of bulk transitions by machine, transition and outcome",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"machine", "transition", "outcome"})
)

func sanitizeMachine(name string) string {
	if name == "" {
		return unknownLabel
	}

	return name
}

// transitionLabel and stateLabel limit label values to names declared in the
// table, so arbitrary input cannot grow the number of series.
func (m *Machine) transitionLabel(transition string) string {
	if !m.table.Has(transition) {
		return unknownLabel
	}

	return transition
}

func (m *Machine) stateLabel(state string) string {
	switch {
	case state == "":
		return "none"
	case !m.table.States().Contains(state):
		return unknownLabel
	default:
		return state
	}
}
