package fsmtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amp-labs/lifecycle/fsm"
)

// Call is one listener invocation captured by a Recorder.
type Call struct {
	Name       string
	Transition string
	Current    string
	Previous   string
	State      string
}

// Recorder captures listener invocations in order.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// Transition returns a listener that records itself under name.
func (r *Recorder) Transition(name string) fsm.TransitionListener {
	return func(_ context.Context, _ fsm.Entity, current, previous, transition string) error {
		r.add(Call{Name: name, Transition: transition, Current: current, Previous: previous})

		return nil
	}
}

// State returns a state listener that records itself under name.
func (r *Recorder) State(name string) fsm.StateListener {
	return func(_ context.Context, _ fsm.Entity, state string) error {
		r.add(Call{Name: name, State: state})

		return nil
	}
}

// Failing returns a listener that records itself and then returns err.
func (r *Recorder) Failing(name string, err error) fsm.TransitionListener {
	return func(_ context.Context, _ fsm.Entity, current, previous, transition string) error {
		r.add(Call{Name: name, Transition: transition, Current: current, Previous: previous})

		return err
	}
}

// Calls returns the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, len(r.calls))
	copy(out, r.calls)

	return out
}

// Names returns the names of the recorded calls in order.
func (r *Recorder) Names() []string {
	calls := r.Calls()

	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}

	return names
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = nil
}

func (r *Recorder) add(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, c)
}

// VehicleOwner implements every fsm owner hook interface and records the
// hooks that fire, by their conventional names.
type VehicleOwner struct {
	Recorder
}

func (o *VehicleOwner) OnBeforeTransition(_ context.Context, _ fsm.Entity, current, previous, transition string) error {
	o.add(Call{Name: "onBeforeTransition", Transition: transition, Current: current, Previous: previous})

	return nil
}

func (o *VehicleOwner) OnAfterTransition(_ context.Context, _ fsm.Entity, current, previous, transition string) error {
	o.add(Call{Name: "onAfterTransition", Transition: transition, Current: current, Previous: previous})

	return nil
}

func (o *VehicleOwner) TransitionHook(phase fsm.Phase, transition string) fsm.TransitionListener {
	if transition != "ignite" {
		return nil
	}

	return o.Transition(fmt.Sprintf("on%s%s", fsm.Camelize(string(phase)), fsm.Camelize(transition)))
}

func (o *VehicleOwner) StateHook(state string) fsm.StateListener {
	if state != "idling" {
		return nil
	}

	return o.State("onStateIdling")
}

func (o *VehicleOwner) OnStateChange(_ context.Context, _ fsm.Entity, state string) error {
	o.add(Call{Name: "onStateChange", State: state})

	return nil
}

// Clock is a manual clock for deterministic timestamps.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current time of the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}
