// Package dispatch sends one rendered campaign to many recipients with
// bounded concurrency and per-recipient retry.
package dispatch

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/courier/internal/credential"
	"github.com/dmitrymomot/courier/internal/recipient"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/mailer"
)

// Sender transmits one message authenticated with an access token and
// returns the provider message id. Errors are classified with
// mailer.Classify.
type Sender interface {
	Send(ctx context.Context, accessToken string, email *mailer.Email) (string, error)
}

// Status is the outcome of one recipient.
type Status string

const (
	StatusSent        Status = "sent"
	StatusFailed      Status = "failed"
	StatusAuthExpired Status = "auth_expired"
	// StatusSkipped marks recipients never attempted because the caller
	// canceled the batch.
	StatusSkipped Status = "skipped"
)

// Content is the campaign message before personalization.
type Content struct {
	Headers     map[string]string
	Subject     string
	HTML        string
	Text        string
	ReplyTo     string
	Attachments []mailer.Attachment
}

// Result is the outcome for the recipient at Index in the input.
type Result struct {
	At        time.Time           `json:"at"`
	Recipient recipient.Recipient `json:"recipient"`
	Status    Status              `json:"status"`
	MessageID string              `json:"message_id,omitempty"`
	Reason    string              `json:"reason,omitempty"`
	Index     int                 `json:"index"`
	Attempts  int                 `json:"attempts"`
}

// Summary counts results by status.
type Summary struct {
	Sent        int `json:"sent"`
	Failed      int `json:"failed"`
	AuthExpired int `json:"auth_expired"`
	Skipped     int `json:"skipped"`
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusSent:
			s.Sent++
		case StatusAuthExpired:
			s.AuthExpired++
		case StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}

// Pool fans sends out over a fixed number of workers.
type Pool struct {
	sender      Sender
	logger      *slog.Logger
	now         func() time.Time
	workers     int
	maxAttempts int
	sendTimeout time.Duration
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// New creates a dispatch pool.
func New(sender Sender, opts ...Option) *Pool {
	p := &Pool{
		sender:      sender,
		logger:      logger.NewNope(),
		now:         time.Now,
		workers:     defaultWorkers,
		maxAttempts: defaultMaxAttempts,
		sendTimeout: defaultSendTimeout,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SendAll sends content to every recipient and returns one result per
// recipient, in input order. A failed recipient never stops the batch.
//
// Canceling ctx stops new sends; sends already in flight finish on a detached
// context bounded by the send timeout and are reported. Recipients never
// started are reported as StatusSkipped.
func (p *Pool) SendAll(ctx context.Context, token credential.Secret, content Content, recipients []recipient.Recipient) []Result {
	results := make([]Result, len(recipients))

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, r := range recipients {
		if ctx.Err() != nil {
			results[i] = p.skipped(i, r)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = p.skipped(i, r)
				return nil
			}
			results[i] = p.sendOne(ctx, token, content, i, r)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Pool) sendOne(ctx context.Context, token credential.Secret, content Content, index int, r recipient.Recipient) Result {
	email := compose(content, r)
	res := Result{Index: index, Recipient: r}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		res.Attempts = attempt

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.sendTimeout)
		id, err := p.sender.Send(sctx, token.Reveal(), email)
		cancel()

		if err == nil {
			res.Status = StatusSent
			res.MessageID = id
			res.At = p.now()
			return res
		}

		class := mailer.Classify(err)
		res.Reason = class.String() + ": " + err.Error()
		res.At = p.now()

		switch class {
		case mailer.ClassAuthExpired:
			res.Status = StatusAuthExpired
			return res
		case mailer.ClassTransient:
			if attempt == p.maxAttempts || !p.wait(ctx, p.backoff(attempt)) {
				break
			}
			p.logger.DebugContext(ctx, "retrying send",
				slog.Int("recipient", index),
				slog.Int("attempt", attempt),
			)
			continue
		}
		break
	}

	res.Status = StatusFailed
	p.logger.WarnContext(ctx, "send failed",
		slog.Int("recipient", index),
		slog.Int("attempts", res.Attempts),
		slog.String("reason", res.Reason),
	)
	return res
}

func (p *Pool) skipped(index int, r recipient.Recipient) Result {
	return Result{
		Index:     index,
		Recipient: r,
		Status:    StatusSkipped,
		Reason:    "canceled before send",
		At:        p.now(),
	}
}

// backoff returns a full-jitter delay for the given attempt (1-based).
func (p *Pool) backoff(attempt int) time.Duration {
	d := p.maxBackoff
	if shift := attempt - 1; shift < 16 {
		if exp := p.baseBackoff << shift; exp > 0 && exp < d {
			d = exp
		}
	}
	if d <= 0 {
		return 0
	}
	return rand.N(d)
}

// wait sleeps for d unless ctx is canceled first.
func (p *Pool) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func compose(c Content, r recipient.Recipient) *mailer.Email {
	name := strings.TrimSpace(r.FirstName + " " + r.LastName)
	return &mailer.Email{
		To:          []string{mailer.Address(name, r.Email)},
		Subject:     Personalize(c.Subject, r),
		HTML:        PersonalizeHTML(c.HTML, r),
		Text:        Personalize(c.Text, r),
		ReplyTo:     c.ReplyTo,
		Headers:     c.Headers,
		Attachments: c.Attachments,
	}
}
