package campaign_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/internal/audit"
	"github.com/dmitrymomot/courier/internal/auth"
	"github.com/dmitrymomot/courier/internal/campaign"
	"github.com/dmitrymomot/courier/internal/credential"
	"github.com/dmitrymomot/courier/internal/dispatch"
	"github.com/dmitrymomot/courier/internal/profile"
	"github.com/dmitrymomot/courier/internal/quota"
	"github.com/dmitrymomot/courier/internal/recipient"
	"github.com/dmitrymomot/courier/internal/token"
	"github.com/dmitrymomot/courier/pkg/mailer"
	"github.com/dmitrymomot/courier/pkg/storage"
)

// fakeTokens hands out "token-N" and counts calls.
type fakeTokens struct {
	acquireErr error
	refreshErr error
	acquired   atomic.Int32
	refreshed  atomic.Int32
	mu         sync.Mutex
	stale      []credential.Secret
}

func (f *fakeTokens) AcquireValidToken(context.Context, string) (credential.Secret, error) {
	f.acquired.Add(1)
	if f.acquireErr != nil {
		return "", f.acquireErr
	}
	return "token-1", nil
}

func (f *fakeTokens) ForceRefresh(_ context.Context, _ string, stale credential.Secret) (credential.Secret, error) {
	f.refreshed.Add(1)
	f.mu.Lock()
	f.stale = append(f.stale, stale)
	f.mu.Unlock()
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return "token-2", nil
}

// recordingSender records every provider call.
type recordingSender struct {
	fail  func(token, to string) error
	mu    sync.Mutex
	calls []sentCall
}

type sentCall struct {
	email *mailer.Email
	token string
}

func (s *recordingSender) Send(_ context.Context, accessToken string, email *mailer.Email) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, sentCall{token: accessToken, email: email})
	s.mu.Unlock()
	if s.fail != nil {
		if err := s.fail(accessToken, email.To[0]); err != nil {
			return "", err
		}
	}
	return "id", nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type failingAudit struct{}

func (failingAudit) Insert(context.Context, *audit.Record) error { return errors.New("db down") }

type fakeBlobs map[string][]byte

func (f fakeBlobs) ReadAll(_ context.Context, key string) ([]byte, *storage.Object, error) {
	data, ok := f[key]
	if !ok {
		return nil, nil, storage.ErrNotFound
	}
	return data, &storage.Object{Key: key, Filename: "report.pdf", ContentType: "application/pdf", Size: int64(len(data))}, nil
}

type harness struct {
	svc      *campaign.Service
	sender   *recordingSender
	tokens   *fakeTokens
	quota    *quota.Service
	audit    *audit.MemoryStore
	profiles *profile.MemoryStore
}

func newHarness(t *testing.T, limit int, opts ...campaign.Option) *harness {
	t.Helper()
	h := &harness{
		sender:   &recordingSender{},
		tokens:   &fakeTokens{},
		quota:    quota.NewService(quota.NewMemoryStore(), limit),
		audit:    audit.NewMemoryStore(),
		profiles: profile.NewMemoryStore(),
	}
	pool := dispatch.New(h.sender, dispatch.WithWorkers(2), dispatch.WithBackoff(time.Millisecond, time.Millisecond))
	h.svc = campaign.New(campaign.Deps{
		Tokens:     h.tokens,
		Profiles:   h.profiles,
		Quota:      h.quota,
		Dispatcher: pool,
		Audit:      h.audit,
	}, opts...)
	return h
}

func userCtx() context.Context {
	return auth.WithUserID(context.Background(), "user-1")
}

func fiveRecipients() []recipient.Recipient {
	return []recipient.Recipient{
		{Email: "r1@x.com"}, {Email: "r2@x.com"}, {Email: "r3@x.com"}, {Email: "r4@x.com"}, {Email: "r5@x.com"},
	}
}

func (h *harness) used(t *testing.T) int {
	t.Helper()
	st, err := h.quota.Status(context.Background(), "user-1")
	require.NoError(t, err)
	return st.Used
}

func TestSend_SingleRecipientScenario(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 10)

	out, err := h.svc.Send(userCtx(), campaign.Request{
		Name:       "Welcome",
		Subject:    "Hi",
		Body:       "Hello {{first_name}}",
		Format:     campaign.FormatText,
		Recipients: []recipient.Recipient{{Email: "a@x.com", FirstName: "Ann"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Sent)

	require.Equal(t, 1, h.sender.count())
	call := h.sender.calls[0]
	assert.Equal(t, "Hello Ann", call.email.Text)
	assert.Equal(t, "Hi", call.email.Subject)
	assert.Equal(t, "token-1", call.token)

	assert.Equal(t, 1, h.used(t))

	records, err := h.audit.List(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Welcome", records[0].Name)
	assert.Equal(t, 1, records[0].RecipientCount)
	assert.Equal(t, 1, records[0].SentCount)
	assert.Equal(t, records[0].ID, out.AuditID)
}

func TestSend_PartialFailureCountsOnlySent(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 10)
	h.sender.fail = func(_, to string) error {
		if to == "r3@x.com" {
			return mailer.ErrRejected
		}
		return nil
	}

	out, err := h.svc.Send(userCtx(), campaign.Request{Subject: "Hi", Body: "<p>Hello</p>", Recipients: fiveRecipients()})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Sent)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Results, 5)
	assert.Equal(t, dispatch.StatusFailed, out.Results[2].Status)
	assert.Equal(t, 4, h.used(t), "quota is charged for sent messages only")
}

func TestSend_ValidationBeforeAnyCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ctx  context.Context
		want error
		name string
		req  campaign.Request
	}{
		{
			name: "no user",
			ctx:  context.Background(),
			req:  campaign.Request{Subject: "Hi", Body: "x", Recipients: fiveRecipients()},
			want: campaign.ErrUnauthorized,
		},
		{
			name: "blank subject",
			ctx:  userCtx(),
			req:  campaign.Request{Subject: "  ", Body: "x", Recipients: fiveRecipients()},
			want: campaign.ErrMissingSubject,
		},
		{
			name: "blank body",
			ctx:  userCtx(),
			req:  campaign.Request{Subject: "Hi", Body: "\n", Recipients: fiveRecipients()},
			want: campaign.ErrMissingBody,
		},
		{
			name: "body empty after sanitization",
			ctx:  userCtx(),
			req:  campaign.Request{Subject: "Hi", Body: "<script>alert(1)</script>", Recipients: fiveRecipients()},
			want: campaign.ErrMissingBody,
		},
		{
			name: "invalid recipient",
			ctx:  userCtx(),
			req:  campaign.Request{Subject: "Hi", Body: "x", Recipients: []recipient.Recipient{{Email: "bad"}}},
			want: recipient.ErrInvalidRecipient,
		},
		{
			name: "empty recipients",
			ctx:  userCtx(),
			req:  campaign.Request{Subject: "Hi", Body: "x"},
			want: recipient.ErrEmptyRecipientList,
		},
		{
			name: "unknown mode",
			ctx:  userCtx(),
			req:  campaign.Request{Subject: "Hi", Body: "x", Mode: "draft", Recipients: fiveRecipients()},
			want: campaign.ErrInvalidMode,
		},
		{
			name: "quota exceeded",
			ctx:  userCtx(),
			req:  campaign.Request{Subject: "Hi", Body: "x", Recipients: fiveRecipients()},
			want: quota.ErrQuotaExceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, 4)

			out, err := h.svc.Send(tt.ctx, tt.req)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, out)
			assert.Zero(t, h.sender.count())
			assert.Zero(t, h.tokens.acquired.Load())
			assert.Zero(t, h.used(t))
		})
	}
}

func TestSend_TokenErrorPropagatesAndReleasesQuota(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 10)
	h.tokens.acquireErr = token.ErrReauthorizationRequired

	_, err := h.svc.Send(userCtx(), campaign.Request{Subject: "Hi", Body: "x", Recipients: fiveRecipients()})
	require.ErrorIs(t, err, token.ErrReauthorizationRequired)
	assert.Zero(t, h.sender.count())
	assert.Zero(t, h.used(t))
}

func TestSend_AuthExpiredRefreshesOnceAndResendsAffected(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 10)
	h.sender.fail = func(tok, to string) error {
		if tok == "token-1" && (to == "r2@x.com" || to == "r4@x.com") {
			return mailer.ErrAuthExpired
		}
		return nil
	}

	out, err := h.svc.Send(userCtx(), campaign.Request{Subject: "Hi", Body: "x", Recipients: fiveRecipients()})
	require.NoError(t, err)
	assert.Equal(t, 5, out.Sent)
	assert.Equal(t, int32(1), h.tokens.refreshed.Load())
	assert.Equal(t, []credential.Secret{"token-1"}, h.tokens.stale)
	assert.Equal(t, 7, h.sender.count(), "5 first attempts plus 2 resends")
	assert.Equal(t, 1, out.Results[1].Index)
	assert.Equal(t, 3, out.Results[3].Index)
}

func TestSend_AuthExpiredTwiceRequiresReauthorization(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 10)
	h.sender.fail = func(_, to string) error {
		if to == "r5@x.com" {
			return mailer.ErrAuthExpired
		}
		return nil
	}

	out, err := h.svc.Send(userCtx(), campaign.Request{Subject: "Hi", Body: "x", Recipients: fiveRecipients()})
	require.ErrorIs(t, err, token.ErrReauthorizationRequired)
	require.NotNil(t, out)
	assert.Equal(t, 4, out.Sent)
	assert.Equal(t, int32(1), h.tokens.refreshed.Load())
	assert.Equal(t, 4, h.used(t))
}

func TestSend_AuditFailureIsNotASendFailure(t *testing.T) {
	t.Parallel()
	sender := &recordingSender{}
	svc := campaign.New(campaign.Deps{
		Tokens:     &fakeTokens{},
		Profiles:   profile.NewMemoryStore(),
		Quota:      quota.NewService(quota.NewMemoryStore(), 10),
		Dispatcher: dispatch.New(sender),
		Audit:      failingAudit{},
	})

	out, err := svc.Send(userCtx(), campaign.Request{Subject: "Hi", Body: "x", Recipients: fiveRecipients()[:1]})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Sent)
}

func TestSend_ConcurrentSendsShareQuotaAtomically(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 10)

	list := make([]recipient.Recipient, 8)
	for i := range list {
		list[i] = recipient.Recipient{Email: string(rune('a'+i)) + "@x.com"}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Send(userCtx(), campaign.Request{Subject: "Hi", Body: "x", Recipients: list})
		}(i)
	}
	wg.Wait()

	var ok, exceeded int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, quota.ErrQuotaExceeded):
			exceeded++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, exceeded)
	assert.Equal(t, 8, h.sender.count())
}

func TestSend_TestMode(t *testing.T) {
	t.Parallel()

	t.Run("not connected fails before resolution", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 10)

		_, err := h.svc.SendTest(userCtx(), campaign.Request{Subject: "Hi", Body: "x"})
		require.ErrorIs(t, err, token.ErrNotConnected)
		assert.Zero(t, h.sender.count())
		assert.Zero(t, h.tokens.acquired.Load())
	})

	t.Run("disconnected profile is not connected", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 10)
		_, err := h.profiles.Connect(context.Background(), "user-1", "me@gmail.com", "Mary Smith")
		require.NoError(t, err)
		require.NoError(t, h.profiles.Disconnect(context.Background(), "user-1"))

		_, err = h.svc.SendTest(userCtx(), campaign.Request{Subject: "Hi", Body: "x"})
		assert.ErrorIs(t, err, token.ErrNotConnected)
	})

	t.Run("sends only to self and spends no quota", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 1)
		_, err := h.profiles.Connect(context.Background(), "user-1", "me@gmail.com", "Mary Smith")
		require.NoError(t, err)

		out, err := h.svc.SendTest(userCtx(), campaign.Request{
			Subject:    "Hi",
			Body:       "Hello {{first_name}}",
			Format:     campaign.FormatText,
			Recipients: fiveRecipients(),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, out.Sent)
		assert.Equal(t, recipient.ModeTest, out.Mode)

		require.Equal(t, 1, h.sender.count())
		email := h.sender.calls[0].email
		assert.Equal(t, []string{"Mary Smith <me@gmail.com>"}, email.To)
		assert.Equal(t, "[TEST] Hi", email.Subject)
		assert.Equal(t, "Hello Mary", email.Text)
		assert.Zero(t, h.used(t))
	})

	t.Run("undelivered test send is an error", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 10)
		h.sender.fail = func(string, string) error { return mailer.ErrRejected }
		_, err := h.profiles.Connect(context.Background(), "user-1", "me@gmail.com", "")
		require.NoError(t, err)

		out, err := h.svc.SendTest(userCtx(), campaign.Request{Subject: "Hi", Body: "x"})
		require.ErrorIs(t, err, campaign.ErrTestSendFailed)
		assert.Equal(t, 0, out.Sent)
	})
}

func TestSend_Content(t *testing.T) {
	t.Parallel()

	t.Run("markdown renders to sanitized html with text part", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 10)

		_, err := h.svc.Send(userCtx(), campaign.Request{
			Subject:    "Hi",
			Body:       "# Hello {{first_name}}\n\nVisit [us](https://example.com)",
			Format:     campaign.FormatMarkdown,
			Recipients: []recipient.Recipient{{Email: "a@x.com", FirstName: "Ann"}},
		})
		require.NoError(t, err)

		email := h.sender.calls[0].email
		assert.Contains(t, email.HTML, "<h1>Hello Ann</h1>")
		assert.Contains(t, email.HTML, `href="https://example.com"`)
		assert.Contains(t, email.Text, "Hello Ann")
		assert.Contains(t, email.Text, "us (https://example.com)")
	})

	t.Run("html is sanitized", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 10)

		_, err := h.svc.Send(userCtx(), campaign.Request{
			Subject:    "Hi",
			Body:       `<p onclick="x()">Hello</p><script>evil()</script>`,
			Recipients: []recipient.Recipient{{Email: "a@x.com"}},
		})
		require.NoError(t, err)

		email := h.sender.calls[0].email
		assert.NotContains(t, email.HTML, "script")
		assert.NotContains(t, email.HTML, "onclick")
		assert.Contains(t, email.HTML, "Hello")
	})
}

func TestSend_Attachments(t *testing.T) {
	t.Parallel()

	t.Run("inline and stored attachments are loaded once", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 10, campaign.WithBlobs(fakeBlobs{"files/1": []byte("%PDF-1.4")}))

		_, err := h.svc.Send(userCtx(), campaign.Request{
			Subject: "Hi",
			Body:    "x",
			Attachments: []campaign.Attachment{
				{Filename: "notes.txt", Content: []byte("hello")},
				{Key: "files/1"},
			},
			Recipients: fiveRecipients()[:2],
		})
		require.NoError(t, err)

		for _, call := range h.sender.calls {
			require.Len(t, call.email.Attachments, 2)
			assert.Equal(t, "notes.txt", call.email.Attachments[0].Filename)
			assert.True(t, strings.HasPrefix(call.email.Attachments[0].ContentType, "text/plain"))
			assert.Equal(t, "report.pdf", call.email.Attachments[1].Filename)
			assert.Equal(t, "application/pdf", call.email.Attachments[1].ContentType)
		}
	})

	tests := []struct {
		name string
		att  campaign.Attachment
		opts []campaign.Option
	}{
		{name: "storage not configured", att: campaign.Attachment{Key: "files/1"}},
		{name: "missing object", att: campaign.Attachment{Key: "nope"}, opts: []campaign.Option{campaign.WithBlobs(fakeBlobs{})}},
		{name: "no content", att: campaign.Attachment{Filename: "a.txt"}},
		{name: "no filename", att: campaign.Attachment{Content: []byte("x")}},
		{name: "too large", att: campaign.Attachment{Filename: "a.bin", Content: make([]byte, 11)}, opts: []campaign.Option{campaign.WithMaxAttachmentBytes(10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, 10, tt.opts...)

			_, err := h.svc.Send(userCtx(), campaign.Request{
				Subject:     "Hi",
				Body:        "x",
				Attachments: []campaign.Attachment{tt.att},
				Recipients:  fiveRecipients(),
			})
			require.ErrorIs(t, err, campaign.ErrAttachment)
			assert.Zero(t, h.sender.count())
			assert.Zero(t, h.used(t))
		})
	}
}
