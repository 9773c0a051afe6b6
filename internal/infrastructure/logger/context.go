package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	userIDKey
)

// WithContext attaches l to ctx.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the attached logger or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// WithRequestID tags ctx with the id sent as X-Request-ID on outbound calls.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithUserID tags ctx with the signed-in user.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func GetRequestID(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

func GetUserID(ctx context.Context) string { return stringValue(ctx, userIDKey) }

func stringValue(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// correlation collects the ids carried by ctx as log fields.
func correlation(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetUserID(ctx); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	return fields
}

// ContextLogger is a zap logger with the correlation ids of one context
// already applied.
type ContextLogger struct {
	*zap.Logger
}

// L builds a ContextLogger from the logger attached to ctx.
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
func L(ctx context.Context) *ContextLogger {
	return WithLogger(ctx, FromContext(ctx))
}

// WithLogger is L with an explicit base logger.
func WithLogger(ctx context.Context, base *zap.Logger) *ContextLogger {
	if base == nil {
		base = zap.NewNop()
	}
	if fields := correlation(ctx); len(fields) > 0 {
		base = base.With(fields...)
	}
	return &ContextLogger{Logger: base}
}
