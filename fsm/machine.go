package fsm

import (
	"context"
	"fmt"
	"time"
)

// Machine evaluates a Table against entities. It holds no per-entity state,
// so one Machine serves any number of entities. Transition calls on distinct
// entities may run concurrently; calls on the same entity must be serialized
// by the caller.
type Machine struct {
	name         string
	table        *Table
	initialState string
	fields       Fields
	owner        any
	now          func() time.Time
	logger       Logger
	store        Store
	listeners    *registry
}

// Option configures a Machine.
type Option func(*Machine)

// WithName sets the machine name used in metrics, spans and logs.
func WithName(name string) Option {
	return func(m *Machine) {
		m.name = name
	}
}

// WithInitialState sets the state assumed for entities whose state is empty.
func WithInitialState(state string) Option {
	return func(m *Machine) {
		m.initialState = Underscore(state)
	}
}

// WithFields overrides the entity field names. Empty names keep their default.
func WithFields(fields Fields) Option {
	return func(m *Machine) {
		m.fields = fields.withDefaults()
	}
}

// WithOwner sets the value whose hook interfaces (BeforeTransitionHook,
// StateHooks, ...) the machine calls.
func WithOwner(owner any) Option {
	return func(m *Machine) {
		m.owner = owner
	}
}

// WithClock replaces time.Now for transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger enables logging through l.
func WithLogger(l Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithStore sets the persistence collaborator used by TransitionAll.
func WithStore(s Store) Option {
	return func(m *Machine) {
		m.store = s
	}
}

// New creates a machine for table. It fails with ErrInvalidConfig when the
// table is missing or empty, or when the initial state is not in the table.
func New(table *Table, opts ...Option) (*Machine, error) {
	if table == nil || table.Len() == 0 {
		return nil, configError(ErrTableRequired)
	}

	m := &Machine{
		table:     table,
		fields:    DefaultFields(),
		now:       time.Now,
		listeners: newRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.initialState != "" && !table.States().Contains(m.initialState) {
		return nil, configError(fmt.Errorf("%w: %s", ErrUnknownInitialState, m.initialState))
	}

	return m, nil
}

// Name returns the machine name.
func (m *Machine) Name() string {
	return m.name
}

// Table returns the transition table.
func (m *Machine) Table() *Table {
	return m.table
}

// Fields returns the entity field names in use.
func (m *Machine) Fields() Fields {
	return m.fields
}

// InitialState returns the configured initial state.
func (m *Machine) InitialState() string {
	return m.initialState
}

// States returns every state referenced by the table, in first-seen order.
func (m *Machine) States() []string {
	return m.table.States().Names()
}

// Transitions returns every declared transition name in declaration order.
func (m *Machine) Transitions() []string {
	return m.table.Names()
}

// CurrentState returns the entity's state, or the initial state when the
// entity has none.
func (m *Machine) CurrentState(e Entity) string {
	if state := Underscore(stringField(e, m.fields.State)); state != "" {
		return state
	}

	return m.initialState
}

// PreviousState returns the state the entity was in before its last
// transition, or "" if it never transitioned.
func (m *Machine) PreviousState(e Entity) string {
	if !enabled(m.fields.PreviousState) {
		return ""
	}

	return stringField(e, m.fields.PreviousState)
}

// LastTransition returns the time of the entity's last transition.
func (m *Machine) LastTransition(e Entity) (time.Time, bool) {
	if !enabled(m.fields.LastTransition) {
		return time.Time{}, false
	}

	return timeField(e, m.fields.LastTransition)
}

// History returns the entity's state history.
func (m *Machine) History(e Entity) (History, error) {
	if !enabled(m.fields.History) {
		return History{}, nil
	}

	return historyOf(e.Get(m.fields.History))
}

// ResolveTarget returns the state the entity would enter through transition.
// It reports false both for undeclared transitions and for declared ones
// with no mapping for the entity's current state; callers cannot tell the
// two apart.
func (m *Machine) ResolveTarget(e Entity, transition string) (string, bool) {
	return m.table.Resolve(Underscore(transition), m.CurrentState(e))
}

// Can reports whether transition is legal for the entity. Names may carry a
// "can" prefix ("canShiftUp").
func (m *Machine) Can(e Entity, transition string) bool {
	_, ok := m.ResolveTarget(e, deformalize(transition))

	return ok
}

// Is reports whether the entity is in state. Names may carry an "is" prefix
// ("isParked").
func (m *Machine) Is(e Entity, state string) bool {
	return m.CurrentState(e) == deformalize(state)
}

// Query answers a prefixed predicate such as "isIdling" or "canRepair".
func (m *Machine) Query(e Entity, name string) (bool, error) {
	q, ok := ParseQuery(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrInvalidQuery, name)
	}

	switch q.Kind {
	case QueryIsState:
		return m.CurrentState(e) == q.Name, nil
	case QueryCanTransition:
		_, ok := m.table.Resolve(q.Name, m.CurrentState(e))

		return ok, nil
	default:
		return false, fmt.Errorf("%w: %s", ErrInvalidQuery, name)
	}
}

// BeforeSave assigns the initial state to a new entity that has none. It is
// the hook a persistence layer calls before inserting an entity, and reports
// whether it changed the entity.
func (m *Machine) BeforeSave(e Entity) bool {
	if m.initialState == "" || !e.IsNew() || stringField(e, m.fields.State) != "" {
		return false
	}

	e.Set(m.fields.State, m.initialState)

	return true
}

// Transition moves the entity through the named transition.
//
// When no legal move exists it returns false with no side effects and no
// listener calls. Otherwise it:
//
//  1. runs the before listeners (transition-specific, then any-transition,
//     then the owner's hooks) with the entity still in its source state;
//  2. records the source as the previous state, sets the target state, the
//     transition time, and appends to the history;
//  3. runs the after listeners in the same order as step 1;
//  4. runs the OnState listeners of the target, then the owner's state hooks.
//
// Listener errors are returned wrapped in a *ListenerError and stop the
// sequence where it is. The bool result reports whether the entity was
// mutated, so a failing before listener yields false and a failing after or
// state listener yields true.
func (m *Machine) Transition(ctx context.Context, e Entity, transition string) (applied bool, err error) {
	transition = Underscore(transition)

	ctx, span := m.startTransitionSpan(ctx, e, transition)

	from := m.CurrentState(e)
	outcome := outcomeApplied

	defer func() {
		switch {
		case err != nil:
			outcome = outcomeError
		case !applied:
			outcome = outcomeRejected
		}

		transitionsTotal.WithLabelValues(sanitizeMachine(m.name), m.transitionLabel(transition), m.stateLabel(from), outcome).Inc()
		endSpan(span, outcome, err)
	}()

	to, ok := m.table.Resolve(transition, from)
	if !ok {
		if m.logger != nil {
			m.logger.TransitionRejected(ctx, e.ID(), transition, from)
		}

		return false, nil
	}

	if err := m.dispatchTransition(ctx, e, transition, PhaseBefore); err != nil {
		m.logListenerError(ctx, e, transition, PhaseBefore, err)

		return false, err
	}

	if err := m.apply(e, from, to); err != nil {
		return false, err
	}

	stateEntriesTotal.WithLabelValues(sanitizeMachine(m.name), to).Inc()

	if m.logger != nil {
		m.logger.TransitionApplied(ctx, e.ID(), transition, from, to)
	}

	if err := m.dispatchTransition(ctx, e, transition, PhaseAfter); err != nil {
		m.logListenerError(ctx, e, transition, PhaseAfter, err)

		return true, err
	}

	if err := m.dispatchState(ctx, e, transition, to); err != nil {
		m.logListenerError(ctx, e, transition, PhaseEnter, err)

		return true, err
	}

	return true, nil
}

// TransitionOrFail is Transition for callers that treat a missing legal move
// as an error. It returns a *TransitionFailedError in that case.
func (m *Machine) TransitionOrFail(ctx context.Context, e Entity, transition string) error {
	applied, err := m.Transition(ctx, e, transition)
	if err != nil {
		return err
	}

	if !applied {
		return &TransitionFailedError{
			EntityID:   e.ID(),
			Transition: Underscore(transition),
			State:      m.CurrentState(e),
		}
	}

	return nil
}

// apply performs the state mutation. The history is decoded before any
// field is written, so a corrupt history leaves the entity untouched.
func (m *Machine) apply(e Entity, from, to string) error {
	var history History

	if enabled(m.fields.History) {
		h, err := historyOf(e.Get(m.fields.History))
		if err != nil {
			return fmt.Errorf("entity %s: %w", e.ID(), err)
		}

		history = h
	}

	now := m.now()

	if enabled(m.fields.PreviousState) {
		e.Set(m.fields.PreviousState, from)
	}

	e.Set(m.fields.State, to)

	if enabled(m.fields.LastTransition) {
		e.Set(m.fields.LastTransition, now)
	}

	if enabled(m.fields.History) {
		e.Set(m.fields.History, history.Append(HistoryEntry{Date: now, State: to}))
	}

	return nil
}

func (m *Machine) logListenerError(ctx context.Context, e Entity, transition string, phase Phase, err error) {
	if m.logger != nil {
		m.logger.ListenerFailed(ctx, e.ID(), transition, phase, err)
	}
}
