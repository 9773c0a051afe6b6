package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_Missing(t *testing.T) {
	l := FromContext(context.Background())
	assert.NotNil(t, l)
}

func TestContextLogger_EnrichesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUserID(ctx, "42")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	L(ctx).Info("order placed", zap.String("order_number", "ORD-1"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "42", fields["user_id"])
		assert.Equal(t, traceID.String(), fields["trace_id"])
		assert.Equal(t, spanID.String(), fields["span_id"])
		assert.Equal(t, "ORD-1", fields["order_number"])
	}
}

func TestWithLogger_NoContextValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	WithLogger(context.Background(), zap.New(core)).Warn("bare")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Empty(t, entries[0].ContextMap())
	}
}
