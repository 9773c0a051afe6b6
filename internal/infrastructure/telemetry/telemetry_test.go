package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, Config{ServiceName: "storefront"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestStartSpan_RecordsAttributesAndErrors(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp, err := NewTracerProviderWithExporter(Config{ServiceName: "storefront", SamplingRatio: 1}, exporter, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())
	assert.True(t, tp.IsEnabled())

	ctx, span := StartSpan(context.Background(), "checkout", "submit", "items", 2, "method", "express", 42)
	assert.NotEmpty(t, TraceID(ctx))
	SetAttributes(span, "total", 54.0)
	RecordError(span, errors.New("declined"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "checkout.submit", got.Name)
	assert.Equal(t, codes.Error, got.Status.Code)
	assert.Contains(t, got.Attributes, attribute.Int("items", 2))
	assert.Contains(t, got.Attributes, attribute.String("method", "express"))
	assert.Contains(t, got.Attributes, attribute.Float64("total", 54.0))
	assert.Len(t, got.Events, 1)
}

func TestTraceID_Empty(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
