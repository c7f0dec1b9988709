package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// New creates the service logger and returns a flush function that drains
// buffered Sentry events. flush is a no-op when Sentry is disabled.
func New(cfg Config, extractors ...ContextExtractor) (*slog.Logger, func(time.Duration)) {
	return newLogger(os.Stdout, cfg, extractors...)
}

func newLogger(w io.Writer, cfg Config, extractors ...ContextExtractor) (*slog.Logger, func(time.Duration)) {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var out slog.Handler
	if cfg.Format == "text" {
		out = slog.NewTextHandler(w, opts)
	} else {
		out = slog.NewJSONHandler(w, opts)
	}

	noFlush := func(time.Duration) {}
	if cfg.SentryDSN == "" {
		return slog.New(wrap(out, extractors)), noFlush
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(out).Error("sentry disabled", slog.String("error", err.Error()))
		return slog.New(wrap(out, extractors)), noFlush
	}

	logLevels := []slog.Level{slog.LevelWarn, slog.LevelError}
	if cfg.SentryErrorsOnly {
		logLevels = []slog.Level{slog.LevelError}
	}
	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevels,
	}.NewSentryHandler(context.Background())

	flush := func(timeout time.Duration) { sentry.Flush(timeout) }
	return slog.New(wrap(teeHandler{out: out, report: sentryHandler}, extractors)), flush
}

// Redaction runs last so extractor-added attributes are masked too.
func wrap(h slog.Handler, extractors []ContextExtractor) slog.Handler {
	h = NewRedactHandler(h)
	if len(extractors) == 0 {
		return h
	}
	return contextHandler{Handler: h, extractors: extractors}
}

// NewNope returns a logger that discards everything.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
