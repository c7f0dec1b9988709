package gmail_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/mailer"
	"github.com/dmitrymomot/courier/pkg/mailer/gmail"
)

func testEmail() *mailer.Email {
	return &mailer.Email{
		From:    "Owner <owner@example.com>",
		To:      []string{"Ann Lee <ann@example.com>"},
		Subject: "Spring sale",
		Text:    "Hi Ann",
		HTML:    "<p>Hi Ann</p>",
		Attachments: []mailer.Attachment{
			{Filename: "price.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4")},
		},
	}
}

func gmailServer(t *testing.T, status int, body string, seen func(r *http.Request, raw []byte)) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Raw string `json:"raw"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil && seen != nil {
			raw, _ := base64.URLEncoding.DecodeString(payload.Raw)
			seen(r, raw)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Send(t *testing.T) {
	t.Parallel()

	t.Run("submits raw message with bearer token", func(t *testing.T) {
		t.Parallel()

		var (
			gotAuth string
			gotPath string
			gotRaw  []byte
		)
		srv := gmailServer(t, http.StatusOK, `{"id":"msg-1"}`, func(r *http.Request, raw []byte) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			gotRaw = raw
		})

		c := gmail.New(gmail.WithEndpoint(srv.URL+"/"), gmail.WithHTTPClient(srv.Client()))
		id, err := c.Send(context.Background(), "access-1", testEmail())
		require.NoError(t, err)
		assert.Equal(t, "msg-1", id)
		assert.Equal(t, "Bearer access-1", gotAuth)
		assert.Equal(t, "/gmail/v1/users/me/messages/send", gotPath)

		r, err := mail.CreateReader(bytes.NewReader(gotRaw))
		require.NoError(t, err)
		subject, err := r.Header.Subject()
		require.NoError(t, err)
		assert.Equal(t, "Spring sale", subject)
	})

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":401,"message":"Invalid Credentials","errors":[{"reason":"authError"}]}}`, mailer.ErrAuthExpired},
		{"insufficient scope", http.StatusForbidden, `{"error":{"code":403,"message":"no","errors":[{"reason":"insufficientPermissions"}]}}`, mailer.ErrAuthExpired},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"code":429,"message":"slow down"}}`, mailer.ErrTransient},
		{"user rate limit", http.StatusForbidden, `{"error":{"code":403,"message":"slow","errors":[{"reason":"userRateLimitExceeded"}]}}`, mailer.ErrTransient},
		{"server error", http.StatusServiceUnavailable, `{"error":{"code":503,"message":"down"}}`, mailer.ErrTransient},
		{"bad request", http.StatusBadRequest, `{"error":{"code":400,"message":"Invalid To header"}}`, mailer.ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := gmailServer(t, tt.status, tt.body, nil)
			c := gmail.New(gmail.WithEndpoint(srv.URL+"/"), gmail.WithHTTPClient(srv.Client()))
			_, err := c.Send(context.Background(), "access-1", testEmail())
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("network failure is transient", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		endpoint := srv.URL + "/"
		srv.Close()

		c := gmail.New(gmail.WithEndpoint(endpoint))
		_, err := c.Send(context.Background(), "access-1", testEmail())
		require.ErrorIs(t, err, mailer.ErrTransient)
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()

		_, err := gmail.New().Send(context.Background(), "", testEmail())
		require.ErrorIs(t, err, mailer.ErrAuthExpired)
	})

	t.Run("invalid address is rejected without a call", func(t *testing.T) {
		t.Parallel()

		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
		t.Cleanup(srv.Close)

		email := testEmail()
		email.To = []string{"not an address"}
		_, err := gmail.New(gmail.WithEndpoint(srv.URL+"/")).Send(context.Background(), "access-1", email)
		require.ErrorIs(t, err, mailer.ErrRejected)
		assert.False(t, called)
	})
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	raw, err := gmail.BuildMessage(testEmail(), now)
	require.NoError(t, err)

	r, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	to, err := r.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "ann@example.com", to[0].Address)
	assert.Equal(t, "Ann Lee", to[0].Name)

	date, err := r.Header.Date()
	require.NoError(t, err)
	assert.True(t, now.Equal(date))

	var texts []string
	var attachments []string
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			b, err := io.ReadAll(p.Body)
			require.NoError(t, err)
			texts = append(texts, strings.TrimSpace(string(b)))
		case *mail.AttachmentHeader:
			name, err := h.Filename()
			require.NoError(t, err)
			attachments = append(attachments, name)
		}
	}

	assert.Equal(t, []string{"Hi Ann", "<p>Hi Ann</p>"}, texts)
	assert.Equal(t, []string{"price.pdf"}, attachments)
}

func TestBuildMessage_Validation(t *testing.T) {
	t.Parallel()

	_, err := gmail.BuildMessage(&mailer.Email{To: []string{"a@example.com"}, Text: "x"}, time.Now())
	require.ErrorIs(t, err, mailer.ErrNoSubject)
}
