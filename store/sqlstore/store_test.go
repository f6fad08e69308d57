package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/fsm/fsmtest"
	"github.com/amp-labs/lifecycle/store/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `CREATE TABLE vehicles (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	state TEXT,
	previous_state TEXT,
	last_transition DATETIME,
	state_history TEXT
)`

func openVehicles(t *testing.T) *sqlstore.Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	// Each connection to :memory: is a new database.
	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close()
	})

	_, err = db.Exec(schema)
	require.NoError(t, err)

	for _, r := range fsmtest.VehicleRecords() {
		_, err := db.Exec(`INSERT INTO vehicles (id, title, state, previous_state) VALUES (?, ?, ?, ?)`,
			r.ID(), r.Get("title"), r.Get("state"), r.Get("previous_state"))
		require.NoError(t, err)
	}

	store, err := sqlstore.New(db, "vehicles")
	require.NoError(t, err)

	return store
}

func statesByTitle(t *testing.T, store *sqlstore.Store) map[string]string {
	t.Helper()

	records, err := store.Find(t.Context(), nil)
	require.NoError(t, err)

	states := map[string]string{}
	for _, r := range records {
		states[r.Get("title").(string)] = r.Get("state").(string)
	}

	return states
}

func TestTransitionAll(t *testing.T) {
	t.Parallel()

	store := openVehicles(t)

	m, err := fsm.New(fsmtest.VehicleTable(), fsm.WithStore(store))
	require.NoError(t, err)

	affected, err := m.TransitionAll(t.Context(), "ignite", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	assert.Equal(t, map[string]string{
		"Audi Q4":      "idling",
		"Toyota Yaris": "idling",
		"Opel Astra":   "idling",
		"Nissan Leaf":  "stalled",
	}, statesByTitle(t, store))

	affected, err = m.TransitionAll(t.Context(), "shift_up", fsm.Conditions{"title": "Opel Astra"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Equal(t, "first_gear", statesByTitle(t, store)["Opel Astra"])
}

func TestInTransactionRollsBack(t *testing.T) {
	t.Parallel()

	store := openVehicles(t)
	errAbort := errors.New("abort")

	err := store.InTransaction(t.Context(), func(ctx context.Context, tx fsm.Store) error {
		n, err := tx.BulkUpdate(ctx, map[string]any{"state": "idling"}, fsm.Conditions{"state": "parked"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		return errAbort
	})
	require.ErrorIs(t, err, errAbort)
	assert.Equal(t, "parked", statesByTitle(t, store)["Audi Q4"])
}

func TestLoadTransitionSave(t *testing.T) {
	t.Parallel()

	store := openVehicles(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	m, err := fsm.New(fsmtest.VehicleTable(), fsm.WithClock(fsmtest.NewClock(now).Now))
	require.NoError(t, err)

	astra, err := store.Load(t.Context(), "3")
	require.NoError(t, err)
	assert.True(t, m.Is(astra, "idling"))

	applied, err := m.Transition(t.Context(), astra, "shiftUp")
	require.NoError(t, err)
	require.True(t, applied)

	require.NoError(t, store.Save(t.Context(), astra))

	reloaded, err := store.Load(t.Context(), "3")
	require.NoError(t, err)
	assert.Equal(t, "first_gear", m.CurrentState(reloaded))
	assert.Equal(t, "idling", m.PreviousState(reloaded))

	last, ok := m.LastTransition(reloaded)
	require.True(t, ok)
	assert.True(t, now.Equal(last))

	history, err := m.History(reloaded)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_gear"}, history.States())

	_, err = store.Load(t.Context(), "missing")
	require.ErrorIs(t, err, sqlstore.ErrNotFound)
}

func TestNewRejectsBadIdentifiers(t *testing.T) {
	t.Parallel()

	_, err := sqlstore.New(nil, "vehicles; DROP TABLE vehicles")
	require.ErrorIs(t, err, sqlstore.ErrInvalidIdentifier)

	_, err = sqlstore.New(nil, "vehicles", sqlstore.WithIDColumn("1id"))
	require.ErrorIs(t, err, sqlstore.ErrInvalidIdentifier)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	db, err := sqlstore.Open(t.TempDir() + "/fsm.db")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	var mode string

	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}
