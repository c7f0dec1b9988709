package resend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

// ErrUnsupported is returned for messages a notification sender does not
// carry: copies and attachments belong to campaign mail.
var ErrUnsupported = errors.New("resend: unsupported notification field")

// Sender delivers system notifications from the service-owned address
// through the Resend API. Campaign mail never goes through it.
type Sender struct {
	client *resend.Client
	config Config
}

// Option configures a Sender.
type Option func(*resend.Client)

// WithBaseURL points the client at another API host.
func WithBaseURL(u *url.URL) Option {
	return func(c *resend.Client) { c.BaseURL = u }
}

// New creates a Resend notification sender.
func New(cfg Config, opts ...Option) *Sender {
	return newSender(cfg, http.DefaultClient, opts...)
}

// NewWithHTTPClient is New with a caller-supplied HTTP client.
func NewWithHTTPClient(cfg Config, hc *http.Client, opts ...Option) *Sender {
	return newSender(cfg, hc, opts...)
}

func newSender(cfg Config, hc *http.Client, opts ...Option) *Sender {
	client := resend.NewCustomClient(hc, cfg.APIKey)
	for _, opt := range opts {
		opt(client)
	}
	return &Sender{client: client, config: cfg}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if err := email.Validate(); err != nil {
		return err
	}
	if len(email.CC) > 0 || len(email.BCC) > 0 || len(email.Attachments) > 0 {
		return ErrUnsupported
	}

	from := email.From
	if from == "" {
		from = mailer.Address(s.config.SenderName, s.config.SenderEmail)
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		ReplyTo: email.ReplyTo,
		Headers: email.Headers,
		Tags:    []resend.Tag{{Name: "category", Value: "notification"}},
	}

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		if mailer.Classify(err) == mailer.ClassTransient {
			return fmt.Errorf("resend: send notification: %w", errors.Join(mailer.ErrTransient, err))
		}
		return fmt.Errorf("resend: send notification: %w", err)
	}
	return nil
}
