package fsm_test

import (
	"testing"

	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/fsm/fsmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		transitions []fsm.Transition
		expected    error
	}{
		{
			name:     "empty table",
			expected: fsm.ErrTableRequired,
		},
		{
			name:        "missing transition name",
			transitions: []fsm.Transition{fsm.Define(" ", fsm.Move("a", "b"))},
			expected:    fsm.ErrTransitionNameRequired,
		},
		{
			name: "duplicate after normalization",
			transitions: []fsm.Transition{
				fsm.Define("shiftUp", fsm.Move("a", "b")),
				fsm.Define("shift_up", fsm.Move("b", "c")),
			},
			expected: fsm.ErrDuplicateTransition,
		},
		{
			name:        "empty state",
			transitions: []fsm.Transition{fsm.Define("go", fsm.Move("", "b"))},
			expected:    fsm.ErrStateNameRequired,
		},
		{
			name:        "wildcard target",
			transitions: []fsm.Transition{fsm.Define("go", fsm.Move("a", fsm.Wildcard))},
			expected:    fsm.ErrWildcardTarget,
		},
		{
			name:        "duplicate source",
			transitions: []fsm.Transition{fsm.Define("go", fsm.Move("firstGear", "b"), fsm.Move("first_gear", "c"))},
			expected:    fsm.ErrDuplicateSourceState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := fsm.NewTable(tt.transitions...)
			require.ErrorIs(t, err, fsm.ErrInvalidConfig)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestMustTablePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		fsm.MustTable()
	})
}

func TestTableCanonicalizes(t *testing.T) {
	t.Parallel()

	table := fsm.MustTable(
		fsm.Define("ShiftUp", fsm.Move("Idling", "FirstGear")),
		fsm.Define("turn-off", fsm.Move(fsm.Wildcard, "Parked")),
	)

	assert.Equal(t, []string{"shift_up", "turn_off"}, table.Names())
	assert.Equal(t, []string{"idling", "first_gear", "parked"}, table.States().Names())
	assert.Equal(t, []string{"Idling", "FirstGear", "Parked"}, table.States().DisplayNames())
	assert.True(t, table.Has("shift_up"))
	assert.True(t, table.Has("turnOff"))
	assert.False(t, table.States().Contains(fsm.Wildcard))
	assert.True(t, table.States().Contains("firstGear"))

	transition, ok := table.Lookup("shiftUp")
	require.True(t, ok)
	assert.Equal(t, fsm.Define("shift_up", fsm.Move("idling", "first_gear")), transition)

	_, ok = table.Lookup("fly")
	assert.False(t, ok)
}

func TestTableResolve(t *testing.T) {
	t.Parallel()

	table := fsmtest.VehicleTable()

	tests := []struct {
		transition string
		current    string
		expected   string
		ok         bool
	}{
		{"ignite", "parked", "idling", true},
		{"ignite", "stalled", "stalled", true},
		{"ignite", "idling", "", false},
		{"shiftUp", "firstGear", "second_gear", true},
		{"turn_off", "third_gear", "parked", true},
		{"turn_off", "parked", "parked", true},
		{"turn_off", "", "parked", true},
		{"baz", "parked", "", false},
		{"fly", "parked", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.transition+"/"+tt.current, func(t *testing.T) {
			t.Parallel()

			got, ok := table.Resolve(tt.transition, tt.current)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTableTransitionsIsACopy(t *testing.T) {
	t.Parallel()

	table := fsmtest.VehicleTable()

	transitions := table.Transitions()
	require.Len(t, transitions, 9)

	transitions[0].Edges[0].To = "flying"

	to, ok := table.Resolve("ignite", "parked")
	require.True(t, ok)
	assert.Equal(t, "idling", to)
	assert.Empty(t, transitions[8].Edges)
}

func TestToDot(t *testing.T) {
	t.Parallel()

	m, err := fsm.New(fsmtest.VehicleTable())
	require.NoError(t, err)

	assert.Equal(t, fsmtest.VehicleDot, m.ToDot())
	assert.Equal(t, fsmtest.VehicleDot, fsmtest.VehicleTable().ToDot())
}
