package mongostore

import (
	"os"
	"testing"
	"time"

	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/fsm/fsmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestFilter(t *testing.T) {
	t.Parallel()

	filter := Filter(fsm.Conditions{"state": "parked", "fleet": "north", "previous_state": nil})

	assert.Equal(t, bson.D{
		{Key: "fleet", Value: "north"},
		{Key: "previous_state", Value: nil},
		{Key: "state", Value: "parked"},
	}, filter)

	assert.Equal(t, bson.D{}, Filter(nil))
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	history := fsm.History{{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), State: "idling"}}
	encoded, err := history.Encode()
	require.NoError(t, err)

	update := Update(map[string]any{"state": "idling", "state_history": history})

	assert.Equal(t, bson.D{{Key: "$set", Value: bson.D{
		{Key: "state", Value: "idling"},
		{Key: "state_history", Value: encoded},
	}}}, update)
}

func TestDecodeValue(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now, decodeValue(bson.NewDateTimeFromTime(now)))
	assert.Equal(t, "parked", decodeValue("parked"))
}

// TestTransitionAll needs a running server, e.g.
// FSM_TEST_MONGO_URL=mongodb://localhost:27017
//
//nolint:paralleltest // Uses a shared collection
func TestTransitionAll(t *testing.T) {
	url := os.Getenv("FSM_TEST_MONGO_URL")
	if url == "" {
		t.Skip("FSM_TEST_MONGO_URL not set")
	}

	ctx := t.Context()

	client, err := Connect(ctx, Config{ConnectionURL: url, ConnectTimeout: 5 * time.Second, RetryAttempts: 1})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Disconnect(ctx)
	})

	coll := client.Database("fsm_test").Collection("vehicles")
	require.NoError(t, coll.Drop(ctx))

	store := New(coll)
	for _, r := range fsmtest.VehicleRecords() {
		require.NoError(t, store.Save(ctx, r))
	}

	m, err := fsm.New(fsmtest.VehicleTable(), fsm.WithStore(store))
	require.NoError(t, err)

	affected, err := m.TransitionAll(ctx, "ignite", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	leaf, err := store.Load(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "stalled", m.CurrentState(leaf))

	_, err = m.Transition(ctx, leaf, "repair")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, leaf))

	leaf, err = store.Load(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "parked", m.CurrentState(leaf))

	history, err := m.History(leaf)
	require.NoError(t, err)
	assert.Equal(t, []string{"parked"}, history.States())

	_, err = store.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
