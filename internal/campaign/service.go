package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrymomot/courier/internal/audit"
	"github.com/dmitrymomot/courier/internal/auth"
	"github.com/dmitrymomot/courier/internal/credential"
	"github.com/dmitrymomot/courier/internal/dispatch"
	"github.com/dmitrymomot/courier/internal/profile"
	"github.com/dmitrymomot/courier/internal/quota"
	"github.com/dmitrymomot/courier/internal/recipient"
	"github.com/dmitrymomot/courier/internal/token"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/mailer"
	"github.com/dmitrymomot/courier/pkg/sanitizer"
)

// Service orchestrates campaign sends.
type Service struct {
	deps               Deps
	blobs              Blobs
	markdown           Markdown
	logger             *slog.Logger
	testPrefix         string
	maxAttachmentBytes int64
	auditTimeout       time.Duration
}

// New creates a campaign service.
func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		deps:               deps,
		markdown:           mailer.NewRenderer(nil),
		logger:             logger.NewNope(),
		testPrefix:         defaultTestSubjectPrefix,
		maxAttachmentBytes: defaultMaxAttachmentBytes,
		auditTimeout:       defaultAuditTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers a campaign for the user in ctx.
//
// Validation, quota and credential failures abort before any message is
// sent. Once dispatch starts, per-recipient failures are reported in the
// Outcome and only a provider rejecting a freshly refreshed token aborts
// with token.ErrReauthorizationRequired. A non-nil Outcome may accompany an
// error when some messages were already sent.
func (s *Service) Send(ctx context.Context, req Request) (*Outcome, error) {
	userID := auth.UserID(ctx)
	if userID == "" {
		return nil, ErrUnauthorized
	}

	mode, err := validate(req)
	if err != nil {
		return nil, err
	}

	var self *recipient.Self
	if mode == recipient.ModeTest {
		self, err = s.self(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	recipients, err := recipient.Resolve(recipient.Request{
		Mode:       mode,
		Recipients: req.Recipients,
		Self:       self,
	})
	if err != nil {
		return nil, err
	}

	content, err := s.content(ctx, req, mode)
	if err != nil {
		return nil, err
	}

	// Test sends neither check nor consume quota.
	var reservation quota.Reservation
	if mode == recipient.ModeReal {
		reservation, err = s.deps.Quota.Reserve(ctx, userID, len(recipients))
		if err != nil {
			return nil, err
		}
	}

	tok, err := s.deps.Tokens.AcquireValidToken(ctx, userID)
	if err != nil {
		s.settle(ctx, reservation, 0)
		return nil, err
	}

	results := s.deps.Dispatcher.SendAll(ctx, tok, content, recipients)
	results, err = s.redispatchAuthExpired(ctx, userID, tok, content, recipients, results)

	out := s.finish(ctx, userID, req, mode, reservation, results)
	return out, err
}

// SendTest sends the campaign to the user's own mailbox and fails with
// ErrTestSendFailed if it was not delivered.
func (s *Service) SendTest(ctx context.Context, req Request) (*Outcome, error) {
	req.Mode = recipient.ModeTest
	out, err := s.Send(ctx, req)
	if err != nil {
		return out, err
	}
	if out.Sent == 0 {
		return out, ErrTestSendFailed
	}
	return out, nil
}

func validate(req Request) (recipient.Mode, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return "", ErrMissingSubject
	}
	if strings.TrimSpace(req.Body) == "" {
		return "", ErrMissingBody
	}

	switch req.Format {
	case "", FormatHTML, FormatMarkdown, FormatText:
	default:
		return "", ErrInvalidFormat
	}

	switch req.Mode {
	case "", recipient.ModeReal:
		return recipient.ModeReal, nil
	case recipient.ModeTest:
		return recipient.ModeTest, nil
	default:
		return "", ErrInvalidMode
	}
}

// self returns the connected mailbox for a test send.
func (s *Service) self(ctx context.Context, userID string) (*recipient.Self, error) {
	p, err := s.deps.Profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, token.ErrNotConnected
		}
		return nil, err
	}
	if !p.Connected || p.MailboxEmail == "" {
		return nil, token.ErrNotConnected
	}
	return &recipient.Self{Email: p.MailboxEmail, DisplayName: p.DisplayName}, nil
}

// content renders the body into sanitized HTML and a text part and loads
// attachments.
func (s *Service) content(ctx context.Context, req Request, mode recipient.Mode) (dispatch.Content, error) {
	c := dispatch.Content{
		Subject: strings.TrimSpace(req.Subject),
		ReplyTo: strings.TrimSpace(req.ReplyTo),
	}
	if mode == recipient.ModeTest {
		c.Subject = s.testPrefix + c.Subject
	}

	switch req.Format {
	case FormatText:
		c.Text = req.Body
	case FormatMarkdown:
		html, err := s.markdown.MarkdownToHTML(req.Body)
		if err != nil {
			return dispatch.Content{}, err
		}
		c.HTML = sanitizer.EmailHTML(html)
		c.Text = sanitizer.PlainText(c.HTML)
	default:
		c.HTML = sanitizer.EmailHTML(req.Body)
		c.Text = sanitizer.PlainText(c.HTML)
	}
	if strings.TrimSpace(c.HTML) == "" && strings.TrimSpace(c.Text) == "" {
		return dispatch.Content{}, ErrMissingBody
	}

	if c.ReplyTo != "" && !recipient.ValidEmail(c.ReplyTo) {
		return dispatch.Content{}, &recipient.InvalidRecipientError{Index: -1, Email: c.ReplyTo}
	}

	attachments, err := s.attachments(ctx, req.Attachments)
	if err != nil {
		return dispatch.Content{}, err
	}
	c.Attachments = attachments
	return c, nil
}

func (s *Service) attachments(ctx context.Context, list []Attachment) ([]mailer.Attachment, error) {
	if len(list) == 0 {
		return nil, nil
	}

	out := make([]mailer.Attachment, 0, len(list))
	var total int64
	for i, a := range list {
		name, contentType, data := a.Filename, a.ContentType, a.Content

		switch {
		case a.Key != "":
			if s.blobs == nil {
				return nil, fmt.Errorf("%w: attachment %d: storage is not configured", ErrAttachment, i)
			}
			blob, obj, err := s.blobs.ReadAll(ctx, a.Key)
			if err != nil {
				return nil, errors.Join(fmt.Errorf("%w: attachment %d", ErrAttachment, i), err)
			}
			data = blob
			if name == "" {
				name = obj.Filename
			}
			if contentType == "" {
				contentType = obj.ContentType
			}
		case len(data) == 0:
			return nil, fmt.Errorf("%w: attachment %d has no content", ErrAttachment, i)
		}

		name = filepath.Base(strings.TrimSpace(name))
		if name == "" || name == "." || name == "/" {
			return nil, fmt.Errorf("%w: attachment %d has no filename", ErrAttachment, i)
		}

		total += int64(len(data))
		if total > s.maxAttachmentBytes {
			return nil, fmt.Errorf("%w: attachments exceed %d bytes", ErrAttachment, s.maxAttachmentBytes)
		}

		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(name))
		}
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}

		out = append(out, mailer.Attachment{
			Filename:    name,
			ContentType: contentType,
			Content:     data,
		})
	}
	return out, nil
}

// redispatchAuthExpired refreshes the token once and resends to the
// recipients whose send was rejected for authorization. A second rejection
// fails the call instead of looping.
func (s *Service) redispatchAuthExpired(
	ctx context.Context,
	userID string,
	stale credential.Secret,
	content dispatch.Content,
	recipients []recipient.Recipient,
	results []dispatch.Result,
) ([]dispatch.Result, error) {
	var affected []int
	for i, r := range results {
		if r.Status == dispatch.StatusAuthExpired {
			affected = append(affected, i)
		}
	}
	if len(affected) == 0 {
		return results, nil
	}

	s.logger.WarnContext(ctx, "provider rejected access token, refreshing",
		slog.String("user_id", userID),
		slog.Int("affected", len(affected)),
	)

	fresh, err := s.deps.Tokens.ForceRefresh(ctx, userID, stale)
	if err != nil {
		return results, err
	}

	subset := make([]recipient.Recipient, len(affected))
	for j, i := range affected {
		subset[j] = recipients[i]
	}

	retried := s.deps.Dispatcher.SendAll(ctx, fresh, content, subset)
	var stillRejected bool
	for j, r := range retried {
		r.Index = affected[j]
		results[affected[j]] = r
		if r.Status == dispatch.StatusAuthExpired {
			stillRejected = true
		}
	}
	if stillRejected {
		return results, token.ErrReauthorizationRequired
	}
	return results, nil
}

// finish settles quota and writes the audit record. Neither failure is
// reported to the caller: messages already accepted by the provider stay
// sent.
func (s *Service) finish(
	ctx context.Context,
	userID string,
	req Request,
	mode recipient.Mode,
	reservation quota.Reservation,
	results []dispatch.Result,
) *Outcome {
	sum := dispatch.Summarize(results)
	out := &Outcome{
		Mode:       mode,
		Results:    results,
		Recipients: len(results),
		Sent:       sum.Sent,
		Failed:     sum.Failed + sum.AuthExpired,
		Skipped:    sum.Skipped,
	}

	s.settle(ctx, reservation, sum.Sent)

	rec := &audit.Record{
		UserID:         userID,
		Name:           req.Name,
		Subject:        req.Subject,
		Mode:           string(mode),
		RecipientCount: out.Recipients,
		SentCount:      out.Sent,
		FailedCount:    out.Failed,
		SkippedCount:   out.Skipped,
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.auditTimeout)
	defer cancel()
	if err := s.deps.Audit.Insert(actx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to write campaign audit record",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		out.AuditID = rec.ID
	}

	s.logger.InfoContext(ctx, "campaign dispatched",
		slog.String("user_id", userID),
		slog.String("mode", string(mode)),
		slog.Int("recipients", out.Recipients),
		slog.Int("sent", out.Sent),
		slog.Int("failed", out.Failed),
		slog.Int("skipped", out.Skipped),
	)
	return out
}

func (s *Service) settle(ctx context.Context, res quota.Reservation, sent int) {
	if res.Count == 0 {
		return
	}
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.auditTimeout)
	defer cancel()
	if err := s.deps.Quota.Settle(qctx, res, sent); err != nil {
		s.logger.ErrorContext(ctx, "failed to release unused quota",
			slog.String("user_id", res.UserID),
			slog.String("error", err.Error()),
		)
	}
}
