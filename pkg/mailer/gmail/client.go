package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

// Client submits messages to the Gmail API on behalf of a user.
// It holds no credentials; every Send carries its own access token.
type Client struct {
	httpClient *http.Client
	endpoint   string
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the base HTTP client used beneath the OAuth transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithEndpoint overrides the Gmail API base URL.
func WithEndpoint(endpoint string) Option {
	return func(cl *Client) {
		cl.endpoint = endpoint
	}
}

// WithClock overrides the time source used for the Date header.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		if now != nil {
			cl.now = now
		}
	}
}

// New creates a Gmail client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send delivers email from the mailbox that owns accessToken and returns the
// Gmail message id.
func (c *Client) Send(ctx context.Context, accessToken string, email *mailer.Email) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("%w: empty access token", mailer.ErrAuthExpired)
	}

	raw, err := BuildMessage(email, c.now())
	if err != nil {
		if errors.Is(err, mailer.ErrRejected) {
			return "", err
		}
		return "", errors.Join(mailer.ErrRejected, err)
	}

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return "", err
	}

	msg, err := svc.Users.Messages.Send("me", &gmailapi.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", classify(err)
	}
	return msg.Id, nil
}

func (c *Client) service(ctx context.Context, accessToken string) (*gmailapi.Service, error) {
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	httpClient := oauth2.NewClient(authCtx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail: create service: %w", err)
	}
	return svc, nil
}

// classify tags a Gmail API error with its mailer failure class.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		// Transport failures, timeouts and cancellations.
		return errors.Join(mailer.ErrTransient, err)
	}

	switch {
	case apiErr.Code == http.StatusUnauthorized:
		return errors.Join(mailer.ErrAuthExpired, err)
	case apiErr.Code == http.StatusForbidden && hasReason(apiErr, "insufficientPermissions", "authError", "forbidden"):
		return errors.Join(mailer.ErrAuthExpired, err)
	case apiErr.Code == http.StatusForbidden && hasReason(apiErr, "rateLimitExceeded", "userRateLimitExceeded"):
		return errors.Join(mailer.ErrTransient, err)
	case apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= 500:
		return errors.Join(mailer.ErrTransient, err)
	default:
		return errors.Join(mailer.ErrRejected, err)
	}
}

func hasReason(apiErr *googleapi.Error, reasons ...string) bool {
	for _, item := range apiErr.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	return false
}
