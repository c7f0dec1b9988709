// Package campaign is the entry point for sending a campaign: it checks the
// caller, resolves recipients, reserves quota, acquires a mailbox token,
// dispatches and records the outcome.
package campaign

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/courier/internal/audit"
	"github.com/dmitrymomot/courier/internal/credential"
	"github.com/dmitrymomot/courier/internal/dispatch"
	"github.com/dmitrymomot/courier/internal/profile"
	"github.com/dmitrymomot/courier/internal/quota"
	"github.com/dmitrymomot/courier/internal/recipient"
	"github.com/dmitrymomot/courier/pkg/storage"
)

// Format is the markup of a campaign body.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Attachment is either inline content or a key in attachment storage.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Key         string `json:"key,omitempty"`
	Content     []byte `json:"content,omitempty"`
}

// Request is one campaign send. Body may contain {{first_name}},
// {{last_name}} and {{email}} placeholders.
type Request struct {
	Name        string                `json:"name"`
	Subject     string                `json:"subject"`
	Body        string                `json:"body"`
	Format      Format                `json:"format,omitempty"`
	ReplyTo     string                `json:"reply_to,omitempty"`
	Mode        recipient.Mode        `json:"mode,omitempty"`
	Recipients  []recipient.Recipient `json:"recipients,omitempty"`
	Attachments []Attachment          `json:"attachments,omitempty"`
}

// Outcome is the result of a send. Sent is counted from per-recipient
// results, never from the number of recipients requested.
type Outcome struct {
	AuditID    uuid.UUID         `json:"audit_id"`
	Mode       recipient.Mode    `json:"mode"`
	Results    []dispatch.Result `json:"results"`
	Recipients int               `json:"recipients"`
	Sent       int               `json:"sent"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
}

// Tokens hands out mailbox access tokens.
type Tokens interface {
	AcquireValidToken(ctx context.Context, userID string) (credential.Secret, error)
	ForceRefresh(ctx context.Context, userID string, stale credential.Secret) (credential.Secret, error)
}

// Profiles reads the user's mailbox profile.
type Profiles interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
}

// Quota reserves and settles daily sends.
type Quota interface {
	Reserve(ctx context.Context, userID string, n int) (quota.Reservation, error)
	Settle(ctx context.Context, res quota.Reservation, sent int) error
}

// Dispatcher sends content to recipients.
type Dispatcher interface {
	SendAll(ctx context.Context, token credential.Secret, content dispatch.Content, recipients []recipient.Recipient) []dispatch.Result
}

// AuditLog records campaign outcomes.
type AuditLog interface {
	Insert(ctx context.Context, rec *audit.Record) error
}

// Blobs loads attachments stored by key.
type Blobs interface {
	ReadAll(ctx context.Context, key string) ([]byte, *storage.Object, error)
}

// Markdown renders markdown bodies to HTML.
type Markdown interface {
	MarkdownToHTML(src string) (string, error)
}

// Deps are the collaborators a Service cannot run without.
type Deps struct {
	Tokens     Tokens
	Profiles   Profiles
	Quota      Quota
	Dispatcher Dispatcher
	Audit      AuditLog
}
