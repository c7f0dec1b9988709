package logger

import (
	"context"
	"log/slog"
)

// teeHandler writes every enabled record to out and mirrors it to report.
// Only out's errors are returned: a failing error reporter must not stop
// local logging.
type teeHandler struct {
	out    slog.Handler
	report slog.Handler
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.out.Enabled(ctx, level) || h.report.Enabled(ctx, level)
}

func (h teeHandler) Handle(ctx context.Context, rec slog.Record) error {
	if h.report.Enabled(ctx, rec.Level) {
		_ = h.report.Handle(ctx, rec.Clone())
	}
	if !h.out.Enabled(ctx, rec.Level) {
		return nil
	}
	return h.out.Handle(ctx, rec)
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{out: h.out.WithAttrs(attrs), report: h.report.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{out: h.out.WithGroup(name), report: h.report.WithGroup(name)}
}
