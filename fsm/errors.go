package fsm

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrInvalidConfig indicates that a machine or table could not be built. It is
	// always joined with a more specific error below.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrTableRequired indicates that no transition table (or an empty one) was supplied.
	ErrTableRequired = errors.New("transition table is required")
	// ErrTransitionNameRequired indicates that a transition was declared without a name.
	ErrTransitionNameRequired = errors.New("transition name is required")
	// ErrStateNameRequired indicates that a from or to state was empty.
	ErrStateNameRequired = errors.New("state name is required")
	// ErrWildcardTarget indicates that the reserved wildcard was used as a target state.
	ErrWildcardTarget = errors.New(`wildcard "all" cannot be a target state`)
	// ErrDuplicateTransition indicates that two transitions normalize to the same name.
	ErrDuplicateTransition = errors.New("duplicate transition")
	// ErrDuplicateSourceState indicates that a transition maps the same source state twice.
	ErrDuplicateSourceState = errors.New("duplicate source state")
	// ErrUnknownInitialState indicates that the initial state is not part of the table.
	ErrUnknownInitialState = errors.New("initial state is not declared in the transition table")
	// ErrMalformedTable indicates that a table document does not have the expected shape.
	ErrMalformedTable = errors.New("malformed transition table")

	// ErrUnknownTransition is returned by TransitionAll for transitions absent from the table.
	ErrUnknownTransition = errors.New("unknown transition")
	// ErrCyclicBulkTransition is returned by TransitionAll when the branches of a
	// transition form a cycle, so no sequential order of bulk updates is correct.
	ErrCyclicBulkTransition = errors.New("transition branches form a cycle and cannot be applied in bulk")
	// ErrStoreRequired is returned by TransitionAll when the machine has no store.
	ErrStoreRequired = errors.New("bulk transitions require a store")

	// ErrTransitionFailed is the sentinel wrapped by TransitionFailedError.
	ErrTransitionFailed = errors.New("transition failed")
	// ErrInvalidQuery indicates that a query name has neither an "is" nor a "can" prefix.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidHistory indicates that a stored state history could not be decoded.
	ErrInvalidHistory = errors.New("invalid state history")
)

func configError(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
}

// TransitionFailedError is returned by TransitionOrFail when no legal move exists.
type TransitionFailedError struct {
	EntityID   string
	Transition string
	State      string
}

func (e *TransitionFailedError) Error() string {
	return fmt.Sprintf("Entity %s failure. Unable to apply %q transition to %q", e.EntityID, e.Transition, e.State)
}

func (e *TransitionFailedError) Unwrap() error {
	return ErrTransitionFailed
}

// ListenerError wraps an error returned by a listener or an owner hook.
type ListenerError struct {
	Phase      Phase
	Transition string
	Err        error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("%s listener for transition %s: %v", e.Phase, e.Transition, e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}

// WrapListenerError wraps an error with listener context.
func WrapListenerError(phase Phase, transition string, err error) error {
	if err == nil {
		return nil
	}

	return &ListenerError{
		Phase:      phase,
		Transition: transition,
		Err:        err,
	}
}
