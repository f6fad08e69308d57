package fsm

import (
	"context"
	"errors"

	"github.com/alitto/pond/v2"
	"go.uber.org/atomic"
)

const defaultBatchConcurrency = 8

// EntityResult is the outcome of one entity in a TransitionEach call.
type EntityResult struct {
	EntityID string
	Applied  bool
	Err      error
}

// BatchResult summarizes a TransitionEach call. Results are in input order.
type BatchResult struct {
	Applied  int64
	Rejected int64
	Failed   int64
	Results  []EntityResult
}

// Err joins the errors of every failed entity, or returns nil.
func (r BatchResult) Err() error {
	var errs []error

	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}

	return errors.Join(errs...)
}

// TransitionEach runs Transition for every entity on a bounded worker pool.
// Unlike TransitionAll it dispatches listeners and records history for each
// entity. Entities must be distinct: the machine does not lock entities, and
// the same entity twice in one call races with itself. A concurrency below 1
// uses a default.
func (m *Machine) TransitionEach(ctx context.Context, entities []Entity, transition string, concurrency int) BatchResult {
	if concurrency < 1 {
		concurrency = defaultBatchConcurrency
	}

	results := make([]EntityResult, len(entities))
	applied := atomic.NewInt64(0)
	rejected := atomic.NewInt64(0)
	failed := atomic.NewInt64(0)

	pool := pond.NewPool(concurrency)
	defer pool.StopAndWait()

	tasks := make([]pond.Task, 0, len(entities))

	for i, e := range entities {
		tasks = append(tasks, pool.Submit(func() {
			ok, err := m.Transition(ctx, e, transition)

			results[i] = EntityResult{EntityID: e.ID(), Applied: ok, Err: err}

			switch {
			case err != nil:
				failed.Inc()
			case ok:
				applied.Inc()
			default:
				rejected.Inc()
			}
		}))
	}

	for i, task := range tasks {
		// Tasks never return errors; a panicking listener surfaces here.
		if err := task.Wait(); err != nil {
			results[i] = EntityResult{EntityID: entities[i].ID(), Err: err}

			failed.Inc()
		}
	}

	return BatchResult{
		Applied:  applied.Load(),
		Rejected: rejected.Load(),
		Failed:   failed.Load(),
		Results:  results,
	}
}
