package fsm

import (
	"context"
	"fmt"
	"maps"
	"time"
)

// Conditions are equality filters on entity fields, combined with AND.
type Conditions map[string]any

// Store is the bulk update capability of a persistence layer.
type Store interface {
	// BulkUpdate sets the given fields on every record matching where and
	// returns the number of records matched.
	BulkUpdate(ctx context.Context, set map[string]any, where Conditions) (int64, error)
}

// Transactor is implemented by stores that can run several bulk updates
// atomically. TransitionAll uses it when available.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// TransitionAll moves every record that matches where through transition,
// with one bulk update per declared source state. Only the state field is
// written: no listeners run and no previous state, timestamp or history is
// recorded. Wildcard branches are skipped because they have no source state
// to filter on.
//
// Branches are ordered so that no record is moved twice: a branch whose
// source is another branch's target runs first. Branches forming a cycle
// fail with ErrCyclicBulkTransition. If the store is a Transactor all
// branches share one transaction; otherwise a failure can leave earlier
// branches applied.
func (m *Machine) TransitionAll(ctx context.Context, transition string, where Conditions) (affected int64, err error) {
	transition = Underscore(transition)

	ctx, span := m.startBulkSpan(ctx, transition)
	start := time.Now()

	defer func() {
		outcome := outcomeApplied
		if err != nil {
			outcome = outcomeError
		}

		labels := []string{sanitizeMachine(m.name), m.transitionLabel(transition), outcome}
		bulkRowsTotal.WithLabelValues(labels...).Add(float64(affected))
		bulkDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

		if m.logger != nil {
			m.logger.BulkApplied(ctx, transition, affected, err)
		}

		endSpan(span, outcome, err)
	}()

	if m.store == nil {
		return 0, ErrStoreRequired
	}

	compiled, ok := m.table.lookup(transition)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTransition, transition)
	}

	branches, err := bulkOrder(compiled.edges)
	if err != nil {
		return 0, fmt.Errorf("transition %s: %w", transition, err)
	}

	run := func(ctx context.Context, store Store) (int64, error) {
		var total int64

		for _, edge := range branches {
			filter := make(Conditions, len(where)+1)
			maps.Copy(filter, where)
			filter[m.fields.State] = edge.From

			n, err := store.BulkUpdate(ctx, map[string]any{m.fields.State: edge.To}, filter)
			if err != nil {
				return total, fmt.Errorf("bulk %s %s -> %s: %w", transition, edge.From, edge.To, err)
			}

			total += n
		}

		return total, nil
	}

	tx, ok := m.store.(Transactor)
	if !ok {
		return run(ctx, m.store)
	}

	var total int64

	err = tx.InTransaction(ctx, func(ctx context.Context, store Store) error {
		var runErr error

		total, runErr = run(ctx, store)

		return runErr
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// bulkOrder returns the non-wildcard edges in an order where every edge runs
// before any edge that targets its source state, keeping declaration order
// otherwise. Self loops do not constrain the order.
func bulkOrder(edges []Edge) ([]Edge, error) {
	var pending []Edge

	for _, edge := range edges {
		if !edge.IsWildcard() {
			pending = append(pending, edge)
		}
	}

	ordered := make([]Edge, 0, len(pending))
	done := make([]bool, len(pending))

	blocked := func(i int) bool {
		for j, other := range pending {
			if j != i && !done[j] && other.From == pending[i].To {
				return true
			}
		}

		return false
	}

	for len(ordered) < len(pending) {
		progressed := false

		for i, edge := range pending {
			if done[i] || blocked(i) {
				continue
			}

			done[i] = true
			ordered = append(ordered, edge)
			progressed = true

			break
		}

		if !progressed {
			return nil, ErrCyclicBulkTransition
		}
	}

	return ordered, nil
}
