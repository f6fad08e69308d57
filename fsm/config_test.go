package fsm_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/fsm/fsmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefinitionFromBytes(t *testing.T) {
	t.Parallel()

	def, err := fsm.LoadDefinitionFromBytes([]byte(fsmtest.VehicleYAML))
	require.NoError(t, err)

	assert.Equal(t, "vehicle", def.Name)
	assert.Equal(t, "parked", def.InitialState)
	assert.Equal(t, fsm.DefaultFields(), def.Fields)
	assert.Equal(t, fsmtest.VehicleTable().Names(), def.Table.Names())
	assert.Equal(t, fsmtest.VehicleDot, def.Table.ToDot())

	m, err := def.NewMachine()
	require.NoError(t, err)
	assert.Equal(t, "vehicle", m.Name())
	assert.Equal(t, "parked", m.InitialState())
}

func TestLoadDefinitionCustomFields(t *testing.T) {
	t.Parallel()

	def, err := fsm.LoadDefinitionFromBytes([]byte(`
name: order
initial_state: pending
fields:
  state: status
  history: "-"
transitions:
  pay:
    pending: paid
`))
	require.NoError(t, err)
	assert.Equal(t, "status", def.Fields.State)
	assert.Equal(t, fsm.DisabledField, def.Fields.History)
	assert.Equal(t, "previous_state", def.Fields.PreviousState)
}

func TestLoadDefinitionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		document string
		expected error
	}{
		{"missing transitions", "name: empty\n", fsm.ErrTableRequired},
		{"transitions not a mapping", "transitions: [a, b]\n", fsm.ErrMalformedTable},
		{"edges not a mapping", "transitions:\n  go: parked\n", fsm.ErrMalformedTable},
		{"nested states", "transitions:\n  go:\n    a: [b]\n", fsm.ErrMalformedTable},
		{"wildcard target", "transitions:\n  go:\n    a: all\n", fsm.ErrWildcardTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := fsm.LoadDefinitionFromBytes([]byte(tt.document))
			require.ErrorIs(t, err, fsm.ErrInvalidConfig)
			assert.ErrorIs(t, err, tt.expected)
		})
	}

	_, err := fsm.LoadDefinitionFromBytes([]byte("transitions: [unterminated"))
	require.Error(t, err)
}

func TestLoadDefinitionUnknownInitialState(t *testing.T) {
	t.Parallel()

	def, err := fsm.LoadDefinitionFromBytes([]byte("initial_state: flying\ntransitions:\n  go:\n    a: b\n"))
	require.NoError(t, err)

	_, err = def.NewMachine()
	require.ErrorIs(t, err, fsm.ErrUnknownInitialState)
}

func TestLoadTableFromBytes(t *testing.T) {
	t.Parallel()

	bare, err := fsm.LoadTableFromBytes([]byte("ignite:\n  parked: idling\nbaz: {}\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ignite", "baz"}, bare.Names())

	full, err := fsm.LoadTableFromBytes([]byte(fsmtest.VehicleYAML))
	require.NoError(t, err)
	assert.Equal(t, 9, full.Len())
}

func TestLoadDefinitionFromFiles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vehicle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fsmtest.VehicleYAML), 0o600))

	def, err := fsm.LoadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, 9, def.Table.Len())

	_, err = fsm.LoadDefinition(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	fsys := fstest.MapFS{"machines/vehicle.yaml": {Data: []byte(fsmtest.VehicleYAML)}}

	def, err = fsm.LoadDefinitionFromFS(fsys, "machines/vehicle.yaml")
	require.NoError(t, err)
	assert.Equal(t, "vehicle", def.Name)
}
