package logger

import (
	"context"
	"log/slog"
	"strings"
)

// Redacted replaces masked attribute values.
const Redacted = "[REDACTED]"

// DefaultSecretKeys are attribute keys whose values are always masked.
var DefaultSecretKeys = []string{
	"access_token",
	"refresh_token",
	"token",
	"id_token",
	"authorization",
	"code",
	"client_secret",
	"password",
}

// RedactHandler masks secret-bearing attributes before they reach next.
// Keys match case-insensitively at any group depth.
type RedactHandler struct {
	next slog.Handler
	keys map[string]struct{}
}

// NewRedactHandler wraps next. With no keys, DefaultSecretKeys are used.
func NewRedactHandler(next slog.Handler, keys ...string) *RedactHandler {
	if len(keys) == 0 {
		keys = DefaultSecretKeys
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}
	return &RedactHandler{next: next, keys: set}
}

func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactHandler) Handle(ctx context.Context, rec slog.Record) error {
	clean := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redact(a))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.redact(a)
	}
	return &RedactHandler{next: h.next.WithAttrs(clean), keys: h.keys}
}

func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{next: h.next.WithGroup(name), keys: h.keys}
}

func (h *RedactHandler) redact(a slog.Attr) slog.Attr {
	if _, secret := h.keys[strings.ToLower(a.Key)]; secret {
		return slog.String(a.Key, Redacted)
	}

	v := a.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		return slog.Attr{Key: a.Key, Value: v}
	}

	group := v.Group()
	clean := make([]any, len(group))
	for i, ga := range group {
		clean[i] = h.redact(ga)
	}
	return slog.Group(a.Key, clean...)
}
