//nolint:err113 // Test file uses errors.New() for creating test errors
package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	return entry
}

func TestAnnotateError(t *testing.T) {
	t.Parallel()

	require.NoError(t, AnnotateError(nil, "key", "value"))

	baseErr := errors.New("store unavailable")
	annotated := AnnotateError(baseErr, "machine", "vehicle", "transition", "ignite")

	require.Error(t, annotated)
	assert.Equal(t, "store unavailable", annotated.Error())
	require.ErrorIs(t, annotated, baseErr)

	attrs := ErrorAttrs(annotated)
	require.Len(t, attrs, 2)
	assert.Equal(t, "machine", attrs[0].Key)
	assert.Equal(t, "vehicle", attrs[0].Value.String())
	assert.Equal(t, "transition", attrs[1].Key)

	assert.Nil(t, ErrorAttrs(baseErr))
}

func TestAnnotateErrorTwice(t *testing.T) {
	t.Parallel()

	baseErr := errors.New("boom")
	annotated := AnnotateError(AnnotateError(baseErr, "a", 1), "b", 2)

	attrs := ErrorAttrs(annotated)
	require.Len(t, attrs, 2)
	assert.Equal(t, "a", attrs[0].Key)
	assert.Equal(t, "b", attrs[1].Key)
	require.ErrorIs(t, annotated, baseErr)

	// Annotations survive wrapping.
	wrapped := fmt.Errorf("bulk: %w", annotated)
	assert.Len(t, ErrorAttrs(wrapped), 2)
}

func TestSlogErrorLoggerHandle(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(&slogErrorLogger{inner: slog.NewJSONHandler(&buf, nil)})

	err := AnnotateError(errors.New("boom"), "transition", "ignite", "affected", 3)
	logger.Error("bulk failed", "error", err, "table", "records")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "bulk failed", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "records", entry["table"])
	assert.Equal(t, "ignite", entry["transition"])
	assert.InDelta(t, 3, entry["affected"], 0)
}

func TestSlogErrorLoggerPlainError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(&slogErrorLogger{inner: slog.NewJSONHandler(&buf, nil)})
	logger.Warn("rejected", "error", errors.New("plain"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "plain", entry["error"])
}

func TestSlogErrorLoggerWithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(&slogErrorLogger{inner: slog.NewJSONHandler(&buf, nil)}).
		With("machine", "vehicle").
		WithGroup("fsm")

	logger.Info("failed", "error", AnnotateError(errors.New("boom"), "entity", "42"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "vehicle", entry["machine"])

	group, ok := entry["fsm"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boom", group["error"])
	assert.Equal(t, "42", group["entity"])
}

func TestSlogErrorLoggerEnabled(t *testing.T) {
	t.Parallel()

	handler := &slogErrorLogger{inner: slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})}

	assert.False(t, handler.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, handler.Enabled(t.Context(), slog.LevelError))
}
