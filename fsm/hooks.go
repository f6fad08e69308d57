package fsm

import "context"

// The interfaces below are optional capabilities of a machine's owner (see
// WithOwner). They replace hook methods discovered by name: the machine checks
// which of them the owner implements and calls them at fixed points.

// BeforeTransitionHook runs before every transition, after all registered
// before listeners.
type BeforeTransitionHook interface {
	OnBeforeTransition(ctx context.Context, e Entity, current, previous, transition string) error
}

// AfterTransitionHook runs after every transition, after all registered
// after listeners.
type AfterTransitionHook interface {
	OnAfterTransition(ctx context.Context, e Entity, current, previous, transition string) error
}

// TransitionHooks supplies per-transition hooks. Returning nil means the
// owner has no hook for that transition and phase.
type TransitionHooks interface {
	TransitionHook(phase Phase, transition string) TransitionListener
}

// StateHooks supplies per-state entry hooks. Returning nil means no hook.
type StateHooks interface {
	StateHook(state string) StateListener
}

// StateChangeHook runs whenever an entity enters any state.
type StateChangeHook interface {
	OnStateChange(ctx context.Context, e Entity, state string) error
}

func (m *Machine) ownerTransitionHooks(transition string, phase Phase) []listenerEntry {
	if m.owner == nil {
		return nil
	}

	var hooks []listenerEntry

	switch phase {
	case PhaseBefore:
		if h, ok := m.owner.(BeforeTransitionHook); ok {
			hooks = append(hooks, listenerEntry{fn: h.OnBeforeTransition, bubble: true})
		}
	case PhaseAfter:
		if h, ok := m.owner.(AfterTransitionHook); ok {
			hooks = append(hooks, listenerEntry{fn: h.OnAfterTransition, bubble: true})
		}
	case PhaseEnter:
	}

	if h, ok := m.owner.(TransitionHooks); ok {
		if fn := h.TransitionHook(phase, transition); fn != nil {
			hooks = append(hooks, listenerEntry{fn: fn, bubble: true})
		}
	}

	return hooks
}

func (m *Machine) ownerStateHooks(state string) []StateListener {
	if m.owner == nil {
		return nil
	}

	var hooks []StateListener

	if h, ok := m.owner.(StateHooks); ok {
		if fn := h.StateHook(state); fn != nil {
			hooks = append(hooks, fn)
		}
	}

	if h, ok := m.owner.(StateChangeHook); ok {
		hooks = append(hooks, h.OnStateChange)
	}

	return hooks
}
