package fsm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	m := gearbox(t, WithLogger(logger))
	e := &mapEntity{id: "car-3", fields: map[string]any{"state": "off"}}

	_, err := m.Transition(context.Background(), e, "start")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"Transition applied"`)
	assert.Contains(t, buf.String(), `"to":"on"`)
	assert.NotContains(t, buf.String(), "car-3")

	buf.Reset()

	_, err = m.Transition(context.Background(), e, "start")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"Transition rejected"`)

	buf.Reset()

	m.OnTransition("stop", PhaseBefore, func(context.Context, Entity, string, string, string) error {
		return errors.New("brake failure")
	})

	_, err = m.Transition(context.Background(), e, "stop")
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"msg":"Transition listener failed"`)
	assert.Contains(t, buf.String(), `"phase":"before"`)
}

func TestLoggerWithTestHandler(t *testing.T) {
	t.Parallel()

	m := gearbox(t, WithLogger(NewSlogLogger(slogt.New(t))), WithStore(countingStore{}))

	affected, err := m.TransitionAll(context.Background(), "start", Conditions{"fleet": "north"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
}

func TestNewDefaultLogger(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, NewDefaultLogger())
}
