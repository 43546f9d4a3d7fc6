package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Tee is an slog.Handler that hands each record to every member enabled for
// its level. The terminal handler and the rolling file are teed together.
type Tee []slog.Handler

// Enabled reports whether any member handles level.
func (t Tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle writes r to each enabled member. A failing member does not stop
// the rest; their errors are joined.
func (t Tee) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	var errs []error

	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}

	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (t Tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (t Tee) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t Tee) derive(fn func(slog.Handler) slog.Handler) Tee {
	out := make(Tee, len(t))
	for i, h := range t {
		out[i] = fn(h)
	}

	return out
}
