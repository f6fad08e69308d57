package fsm_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/fsm/fsmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefinition(t *testing.T) {
	t.Parallel()

	require.NoError(t, fsm.ValidateDefinition([]byte(fsmtest.VehicleYAML)))
	require.NoError(t, fsm.ValidateDefinition([]byte(`{"transitions": {"pay": {"pending": "paid"}, "noop": null}}`)))

	tests := []struct {
		name     string
		document string
	}{
		{"empty", ""},
		{"misspelled key", "intial_state: parked\ntransitions:\n  ignite: {parked: idling}\n"},
		{"missing transitions", "name: vehicle\n"},
		{"transition is a list", "transitions:\n  ignite: [parked, idling]\n"},
		{"nested target", "transitions:\n  ignite: {parked: {to: idling}}\n"},
		{"unknown field", "fields: {status: state}\ntransitions: {}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fsm.ValidateDefinition([]byte(tt.document))
			require.ErrorIs(t, err, fsm.ErrInvalidConfig)
		})
	}
}

func TestValidateDefinitionFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vehicle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fsmtest.VehicleYAML), 0o600))

	require.NoError(t, fsm.ValidateDefinitionFile(path))

	err := fsm.ValidateDefinitionFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, fsm.ErrInvalidConfig)
}
