package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_RecordsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp, err := NewProvider("exam-seating", "test", exp)
	require.NoError(t, err)

	_, span := tp.Tracer(TracerName).Start(context.Background(), "seating.assign")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	// Shutdown resets the in-memory exporter, so read first.
	spans := exp.GetSpans()
	require.NoError(t, tp.Shutdown(context.Background()))
	require.Len(t, spans, 1)
	assert.Equal(t, "seating.assign", spans[0].Name)
}

func TestInit_WritesToFile(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	out := filepath.Join(t.TempDir(), "trace.json")
	shutdown, err := Init("exam-seating", "test", out)
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "seating.unassign")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "seating.unassign")
}
