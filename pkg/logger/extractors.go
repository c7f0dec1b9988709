package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor pulls one attribute out of a request context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
)

// WithRequestID stores a request id for the RequestID extractor.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithUserID stores a user id for the UserID extractor.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// RequestID adds request_id from the context.
func RequestID() ContextExtractor {
	return stringExtractor(requestIDKey, "request_id")
}

// UserID adds user_id from the context.
func UserID() ContextExtractor {
	return stringExtractor(userIDKey, "user_id")
}

func stringExtractor(key ctxKey, attr string) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		v, ok := ctx.Value(key).(string)
		if !ok || v == "" {
			return slog.Attr{}, false
		}
		return slog.String(attr, v), true
	}
}

// contextHandler appends the attributes found by its extractors.
type contextHandler struct {
	slog.Handler
	extractors []ContextExtractor
}

func (h contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, extract := range h.extractors {
		if a, ok := extract(ctx); ok {
			rec.AddAttrs(a)
		}
	}
	return h.Handler.Handle(ctx, rec)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs), extractors: h.extractors}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name), extractors: h.extractors}
}
