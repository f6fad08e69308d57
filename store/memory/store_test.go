package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amp-labs/lifecycle/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	t.Parallel()

	fields := map[string]any{"title": "Audi Q4"}
	r := NewRecord(fields)

	assert.True(t, r.IsNew())
	assert.NotEmpty(t, r.ID())
	assert.NotEqual(t, r.ID(), NewRecord(nil).ID())

	r.Set("state", "parked")
	assert.Equal(t, "parked", r.Get("state"))
	assert.NotContains(t, fields, "state")

	snapshot := r.Snapshot()
	snapshot["state"] = "idling"
	assert.Equal(t, "parked", r.Get("state"))

	h := Hydrate("7", map[string]any{"state": "stalled"})
	assert.False(t, h.IsNew())
	assert.Equal(t, "7", h.ID())
}

func TestRecordDecode(t *testing.T) {
	t.Parallel()

	type vehicle struct {
		Title          string    `mapstructure:"title"`
		State          string    `mapstructure:"state"`
		Seats          int       `mapstructure:"seats"`
		LastTransition time.Time `mapstructure:"last_transition"`
	}

	r := Hydrate("1", map[string]any{
		"title":           "Opel Astra",
		"state":           "idling",
		"seats":           "5",
		"last_transition": "2024-03-01T12:30:00Z",
	})

	var v vehicle

	require.NoError(t, r.Decode(&v))
	assert.Equal(t, "Opel Astra", v.Title)
	assert.Equal(t, "idling", v.State)
	assert.Equal(t, 5, v.Seats)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC), v.LastTransition.UTC())
}

func TestStoreSave(t *testing.T) {
	t.Parallel()

	var seen []string

	store := NewStore(func(e fsm.Entity) bool {
		seen = append(seen, e.ID())
		e.Set("state", "parked")

		return true
	})

	r := NewRecord(map[string]any{"title": "Toyota Yaris"})
	store.Save(r)
	store.Save(r)

	assert.Equal(t, []string{r.ID()}, seen)
	assert.False(t, r.IsNew())
	assert.Len(t, store.All(), 1)

	got, err := store.Get(r.ID())
	require.NoError(t, err)
	assert.Equal(t, "parked", got.Get("state"))

	_, err = store.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreFindAndBulkUpdate(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Save(Hydrate("1", map[string]any{"state": "parked", "fleet": "north"}))
	store.Save(Hydrate("2", map[string]any{"state": "parked", "fleet": "south"}))
	store.Save(Hydrate("3", map[string]any{"state": "idling", "fleet": "north"}))

	assert.Len(t, store.Find(fsm.Conditions{"state": "parked"}), 2)
	assert.Len(t, store.Find(nil), 3)

	n, err := store.BulkUpdate(t.Context(), map[string]any{"state": "idling"}, fsm.Conditions{"state": "parked", "fleet": "north"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	r, err := store.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "idling", r.Get("state"))

	r, err = store.Get("2")
	require.NoError(t, err)
	assert.Equal(t, "parked", r.Get("state"))
}

func TestStoreInTransaction(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Save(Hydrate("1", map[string]any{"state": "parked"}))

	errAbort := errors.New("abort")

	err := store.InTransaction(t.Context(), func(ctx context.Context, tx fsm.Store) error {
		_, err := tx.BulkUpdate(ctx, map[string]any{"state": "idling"}, fsm.Conditions{"state": "parked"})
		require.NoError(t, err)

		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	r, err := store.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "parked", r.Get("state"))

	err = store.InTransaction(t.Context(), func(ctx context.Context, tx fsm.Store) error {
		_, err := tx.BulkUpdate(ctx, map[string]any{"state": "idling"}, fsm.Conditions{"state": "parked"})

		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "idling", r.Get("state"))
}

func TestStoreBulkUpdateCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := NewStore().BulkUpdate(ctx, map[string]any{"state": "idling"}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
