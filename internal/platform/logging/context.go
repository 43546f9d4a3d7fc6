package logging

import (
	"context"
	"log/slog"
)

type (
	loggerKey        struct{}
	requestIDKey     struct{}
	correlationIDKey struct{}
)

var defaultLogger = slog.Default()

// FromContext returns the request or cycle logger, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOr(ctx, defaultLogger)
}

// FromContextOr returns the logger stored in ctx, or fallback.
func FromContextOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx == nil {
		return fallback
	}

	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}

	return fallback
}

// WithContext returns ctx carrying logger.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// with adds attr to the context logger and, when key is non-nil, stores the
// value under key.
func with(ctx context.Context, key any, attr, value string) context.Context {
	if key != nil {
		ctx = context.WithValue(ctx, key, value)
	}

	return WithContext(ctx, FromContext(ctx).With(slog.String(attr, value)))
}

// WithRequestID stores the request ID and logs it as request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, requestIDKey{}, "request_id", id)
}

// WithCorrelationID stores the correlation ID and logs it as correlation_id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return with(ctx, correlationIDKey{}, "correlation_id", id)
}

// WithCycleID starts a display cycle: every line of one refresh or weather
// update logs the same cycle_id, and downstream calls made during it send
// the ID as their correlation ID.
func WithCycleID(ctx context.Context, id string) context.Context {
	return with(ctx, correlationIDKey{}, "cycle_id", id)
}

// WithTraceID logs the active span's trace ID as trace_id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return with(ctx, nil, "trace_id", id)
}

// WithSurface logs the rendering surface a line is about.
func WithSurface(ctx context.Context, surface string) context.Context {
	return with(ctx, nil, "surface", surface)
}

// RequestID returns the ID stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey{})
}

// CorrelationID returns the ID stored by WithCorrelationID or WithCycleID.
func CorrelationID(ctx context.Context) string {
	return stringValue(ctx, correlationIDKey{})
}

func stringValue(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}

	s, _ := ctx.Value(key).(string)

	return s
}

// SetDefault replaces the fallback logger and slog's default.
func SetDefault(logger *slog.Logger) {
	defaultLogger = logger
	slog.SetDefault(logger)
}
