package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestNew_RedactsSecrets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, flush := newLogger(&buf, Config{Level: slog.LevelInfo})
	defer flush(0)

	log.Info("refreshed",
		slog.String("user_id", "u1"),
		slog.String("access_token", "ya29.secret"),
		slog.Group("oauth", slog.String("Refresh_Token", "1//secret"), slog.Int("expires_in", 3599)),
	)

	line := decodeLine(t, &buf)
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, Redacted, line["access_token"])

	group, ok := line["oauth"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Redacted, group["Refresh_Token"])
	assert.InDelta(t, 3599, group["expires_in"], 0)
	assert.NotContains(t, buf.String(), "secret")
}

func TestNew_RedactsWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, _ := newLogger(&buf, Config{Level: slog.LevelInfo})

	log.With(slog.String("authorization", "Bearer abc")).Info("call")
	assert.Equal(t, Redacted, decodeLine(t, &buf)["authorization"])
}

type secretValue string

func (secretValue) LogValue() slog.Value { return slog.StringValue("[hidden]") }

func TestNew_ResolvesLogValuer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, _ := newLogger(&buf, Config{Level: slog.LevelInfo})

	log.Info("stored", slog.Any("credential", secretValue("plain")))
	assert.Equal(t, "[hidden]", decodeLine(t, &buf)["credential"])
}

func TestNew_ContextExtractors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, _ := newLogger(&buf, Config{Level: slog.LevelInfo}, RequestID(), UserID(), nil)

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), "user-1")
	log.InfoContext(ctx, "send")

	line := decodeLine(t, &buf)
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "user-1", line["user_id"])
}

func TestNew_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, _ := newLogger(&buf, Config{Level: slog.LevelWarn})

	log.Info("dropped")
	assert.Empty(t, buf.String())
}

func TestNewRedactHandler_CustomKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewRedactHandler(slog.NewJSONHandler(&buf, nil), "pin"))

	log.Info("x", slog.String("pin", "1234"), slog.String("token", "visible"))
	line := decodeLine(t, &buf)
	assert.Equal(t, Redacted, line["pin"])
	assert.Equal(t, "visible", line["token"])
}

func TestTeeHandler_ReporterFailureDoesNotStopOutput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	report := &failingHandler{level: slog.LevelError}
	log := slog.New(teeHandler{
		out:    slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo}),
		report: report,
	})

	log.Info("info only")
	assert.Contains(t, out.String(), "info only")
	assert.Zero(t, report.calls)

	log.Error("both")
	assert.Contains(t, out.String(), "both")
	assert.Equal(t, 1, report.calls)
}

type failingHandler struct {
	level slog.Level
	calls int
}

func (h *failingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h *failingHandler) Handle(context.Context, slog.Record) error {
	h.calls++
	return errors.New("reporter down")
}

func (h *failingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *failingHandler) WithGroup(string) slog.Handler      { return h }
