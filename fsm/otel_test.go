package fsm

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// mapEntity is a minimal Entity for tests inside the package.
type mapEntity struct {
	id     string
	fields map[string]any
}

func (e *mapEntity) ID() string              { return e.id }
func (e *mapEntity) IsNew() bool             { return false }
func (e *mapEntity) Get(field string) any    { return e.fields[field] }
func (e *mapEntity) Set(field string, v any) { e.fields[field] = v }

type countingStore struct{}

func (countingStore) BulkUpdate(context.Context, map[string]any, Conditions) (int64, error) {
	return 2, nil
}

func gearbox(t *testing.T, opts ...Option) *Machine {
	t.Helper()

	table := MustTable(
		Define("start", Move("off", "on")),
		Define("stop", Move("on", "off")),
	)

	m, err := New(table, append([]Option{WithName("gearbox")}, opts...)...)
	require.NoError(t, err)

	return m
}

// setupTestTracer installs an in-memory exporter as the global tracer provider.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))

	oldProvider := otel.GetTracerProvider()

	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(oldProvider)
	})

	return exporter
}

func spanAttrs(span tracetest.SpanStub) map[string]any {
	attrs := make(map[string]any)
	for _, attr := range span.Attributes {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}

	return attrs
}

// Note: Cannot use t.Parallel() because this test modifies the global OTEL tracer provider.
//
//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestTransitionSpans(t *testing.T) {
	exporter := setupTestTracer(t)
	m := gearbox(t)
	e := &mapEntity{id: "car-1", fields: map[string]any{"state": "off"}}

	_, err := m.Transition(context.Background(), e, "start")
	require.NoError(t, err)

	_, err = m.Transition(context.Background(), e, "start")
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	applied := spans[0]
	assert.Equal(t, "fsm.transition", applied.Name)
	assert.Equal(t, codes.Ok, applied.Status.Code)

	attrs := spanAttrs(applied)
	assert.Equal(t, "gearbox", attrs["machine"])
	assert.Equal(t, "start", attrs["transition"])
	assert.Equal(t, hashID("car-1"), attrs["entity_id_hash"])
	assert.Equal(t, outcomeApplied, attrs["outcome"])

	assert.Equal(t, outcomeRejected, spanAttrs(spans[1])["outcome"])
}

//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestBulkSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	m := gearbox(t, WithStore(countingStore{}))

	_, err := m.TransitionAll(context.Background(), "stop", nil)
	require.NoError(t, err)

	_, err = gearbox(t).TransitionAll(context.Background(), "stop", nil)
	require.ErrorIs(t, err, ErrStoreRequired)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "fsm.transition_all", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Len(t, spans[1].Events, 1)
}

// Note: Cannot use t.Parallel() because this test resets global Prometheus metrics.
//
//nolint:paralleltest // Test modifies global Prometheus metric state
func TestTransitionMetrics(t *testing.T) {
	transitionsTotal.Reset()
	stateEntriesTotal.Reset()

	m := gearbox(t)
	e := &mapEntity{id: "car-2", fields: map[string]any{"state": "off"}}

	_, err := m.Transition(context.Background(), e, "start")
	require.NoError(t, err)

	_, err = m.Transition(context.Background(), e, "start")
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(transitionsTotal.WithLabelValues("gearbox", "start", "off", outcomeApplied)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(transitionsTotal.WithLabelValues("gearbox", "start", "on", outcomeRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(stateEntriesTotal.WithLabelValues("gearbox", "on")), 0)
}

//nolint:paralleltest // Test modifies global Prometheus metric state
func TestTransitionMetricsBoundLabels(t *testing.T) {
	transitionsTotal.Reset()

	m := gearbox(t)
	e := &mapEntity{id: "car-3", fields: map[string]any{"state": "exploded"}}

	for _, name := range []string{"fly", "teleport", "start"} {
		_, err := m.Transition(context.Background(), e, name)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, testutil.CollectAndCount(transitionsTotal))
	assert.InDelta(t, 2, testutil.ToFloat64(transitionsTotal.WithLabelValues("gearbox", "unknown", "unknown", outcomeRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(transitionsTotal.WithLabelValues("gearbox", "start", "unknown", outcomeRejected)), 0)
}

//nolint:paralleltest // Test modifies global Prometheus metric state
func TestBulkMetrics(t *testing.T) {
	bulkRowsTotal.Reset()
	bulkDuration.Reset()

	m := gearbox(t, WithStore(countingStore{}))

	affected, err := m.TransitionAll(context.Background(), "start", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	assert.InDelta(t, 2, testutil.ToFloat64(bulkRowsTotal.WithLabelValues("gearbox", "start", outcomeApplied)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(bulkDuration))
}

func TestSanitization(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", sanitizeMachine(""))
	assert.Equal(t, "vehicle", sanitizeMachine("vehicle"))

	m := gearbox(t)
	assert.Equal(t, "none", m.stateLabel(""))
	assert.Equal(t, "on", m.stateLabel("on"))
	assert.Equal(t, "unknown", m.stateLabel("parked"))
	assert.Equal(t, "stop", m.transitionLabel("stop"))
	assert.Equal(t, "unknown", m.transitionLabel("ignite"))
	assert.Empty(t, hashID(""))
	assert.Equal(t, hashID("abc"), hashID("abc"))
	assert.NotEqual(t, hashID("abc"), hashID("abd"))
}
