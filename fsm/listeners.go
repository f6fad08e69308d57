package fsm

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Phase says where a listener runs relative to the state mutation.
type Phase string

const (
	// PhaseBefore listeners see the entity before its state changes.
	PhaseBefore Phase = "before"
	// PhaseAfter listeners see the entity after its state changed.
	PhaseAfter Phase = "after"
	// PhaseEnter identifies state-entry listeners in a ListenerError.
	PhaseEnter Phase = "enter"
)

// TransitionListener observes a transition. current and previous are the
// entity's states at dispatch time; in the before phase current is the source
// state, in the after phase it is the target.
type TransitionListener func(ctx context.Context, e Entity, current, previous, transition string) error

// StateListener observes an entity entering a state.
type StateListener func(ctx context.Context, e Entity, state string) error

// ListenerOption configures a transition listener at registration.
type ListenerOption func(*listenerEntry)

// WithBubble controls whether later listeners in the same dispatch still run
// after this one. Listeners bubble by default.
func WithBubble(bubble bool) ListenerOption {
	return func(l *listenerEntry) {
		l.bubble = bubble
	}
}

// StopPropagation is WithBubble(false).
func StopPropagation() ListenerOption {
	return WithBubble(false)
}

type listenerEntry struct {
	fn     TransitionListener
	bubble bool
}

type phaseKey struct {
	transition string
	phase      Phase
}

// anyTransition is the registry key for listeners that fire on every transition.
const anyTransition = ""

// registry holds the listeners of one machine. It only grows.
type registry struct {
	mu          sync.RWMutex
	transitions map[phaseKey][]listenerEntry
	states      map[string][]StateListener
}

func newRegistry() *registry {
	return &registry{
		transitions: make(map[phaseKey][]listenerEntry),
		states:      make(map[string][]StateListener),
	}
}

func (r *registry) addTransition(transition string, phase Phase, fn TransitionListener, opts ...ListenerOption) {
	if phase != PhaseBefore && phase != PhaseAfter {
		panic(fmt.Sprintf("fsm: invalid listener phase %q", phase))
	}

	entry := listenerEntry{fn: fn, bubble: true}
	for _, opt := range opts {
		opt(&entry)
	}

	key := phaseKey{transition: transition, phase: phase}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.transitions[key] = append(r.transitions[key], entry)
}

func (r *registry) addState(state string, fn StateListener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state] = append(r.states[state], fn)
}

// transitionListeners returns the transition-specific listeners followed by
// the listeners registered for every transition.
func (r *registry) transitionListeners(transition string, phase Phase) []listenerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specific := r.transitions[phaseKey{transition: transition, phase: phase}]
	global := r.transitions[phaseKey{transition: anyTransition, phase: phase}]

	return slices.Concat(specific, global)
}

func (r *registry) stateListeners(state string) []StateListener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.states[state])
}

// OnTransition registers a listener for one transition and phase. Listeners
// run in registration order; see Transition for the full dispatch order.
// It panics if phase is neither PhaseBefore nor PhaseAfter.
func (m *Machine) OnTransition(transition string, phase Phase, fn TransitionListener, opts ...ListenerOption) *Machine {
	m.listeners.addTransition(Underscore(transition), phase, fn, opts...)

	return m
}

// OnAnyTransition registers a listener that runs for every transition, after
// the transition-specific listeners of the same phase.
func (m *Machine) OnAnyTransition(phase Phase, fn TransitionListener, opts ...ListenerOption) *Machine {
	m.listeners.addTransition(anyTransition, phase, fn, opts...)

	return m
}

// OnState registers a listener that runs whenever an entity enters state.
func (m *Machine) OnState(state string, fn StateListener) *Machine {
	m.listeners.addState(Underscore(state), fn)

	return m
}

// dispatchTransition runs the listeners of one phase. The order is the
// transition-specific listeners, the any-transition listeners, then the
// owner's hooks. A listener registered without bubbling ends the dispatch.
func (m *Machine) dispatchTransition(ctx context.Context, e Entity, transition string, phase Phase) error {
	listeners := m.listeners.transitionListeners(transition, phase)
	listeners = append(listeners, m.ownerTransitionHooks(transition, phase)...)

	if len(listeners) == 0 {
		return nil
	}

	current := m.CurrentState(e)
	previous := m.PreviousState(e)

	for _, listener := range listeners {
		if err := listener.fn(ctx, e, current, previous, transition); err != nil {
			return WrapListenerError(phase, transition, err)
		}

		if !listener.bubble {
			break
		}
	}

	return nil
}

// dispatchState runs the registered OnState listeners followed by the
// owner's state hook and its OnStateChange hook. Every listener runs; there
// is no bubbling here.
func (m *Machine) dispatchState(ctx context.Context, e Entity, transition, state string) error {
	listeners := m.listeners.stateListeners(state)
	listeners = append(listeners, m.ownerStateHooks(state)...)

	for _, listener := range listeners {
		if err := listener(ctx, e, state); err != nil {
			return WrapListenerError(PhaseEnter, transition, err)
		}
	}

	return nil
}
