// Package tasks holds the background jobs run by the job manager: the daily
// send quota cleanup and the reconnect notification sent after a mailbox
// credential was dropped.
package tasks

import (
	"context"
	"embed"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/courier/internal/profile"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/mailer"
)

// templates holds the notification templates and their layouts.
//
//go:embed templates
var templates embed.FS

const (
	ResetSendQuotasName = "reset_send_quotas"
	NotifyReconnectName = "notify_reconnect_required"

	reconnectTemplate = "reconnect_required.md"
)

// Purger removes send quota rows from previous days.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// ResetSendQuotas runs at midnight UTC. Quota windows reset lazily on the
// next reservation; this only drops the stale rows.
type ResetSendQuotas struct {
	quota  Purger
	logger *slog.Logger
}

// NewResetSendQuotas creates the scheduled quota cleanup task.
func NewResetSendQuotas(quota Purger, log *slog.Logger) *ResetSendQuotas {
	if log == nil {
		log = logger.NewNope()
	}
	return &ResetSendQuotas{quota: quota, logger: log}
}

func (t *ResetSendQuotas) Name() string     { return ResetSendQuotasName }
func (t *ResetSendQuotas) Schedule() string { return "0 0 * * *" }

func (t *ResetSendQuotas) Handle(ctx context.Context) error {
	n, err := t.quota.Purge(ctx)
	if err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "send quotas reset", slog.Int64("purged", n))
	return nil
}

// ReconnectPayload identifies the user whose mailbox must be reconnected.
type ReconnectPayload struct {
	UserID string `json:"user_id"`
}

// Profiles looks up where to send the notification.
type Profiles interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
}

// Notifier sends rendered notification templates.
type Notifier interface {
	Send(ctx context.Context, params mailer.SendParams) error
}

// NotifyReconnect emails the owner of a dropped mailbox credential.
type NotifyReconnect struct {
	profiles Profiles
	notifier Notifier
	logger   *slog.Logger
}

// NewNotifyReconnect creates the reconnect notification task.
func NewNotifyReconnect(profiles Profiles, notifier Notifier, log *slog.Logger) *NotifyReconnect {
	if log == nil {
		log = logger.NewNope()
	}
	return &NotifyReconnect{profiles: profiles, notifier: notifier, logger: log}
}

func (t *NotifyReconnect) Name() string { return NotifyReconnectName }

// Handle sends the notification. Users without a known mailbox address are
// skipped rather than retried.
func (t *NotifyReconnect) Handle(ctx context.Context, p ReconnectPayload) error {
	if p.UserID == "" {
		return nil
	}

	prof, err := t.profiles.Get(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			t.logger.WarnContext(ctx, "no profile for reconnect notification", slog.String("user_id", p.UserID))
			return nil
		}
		return err
	}
	if prof.MailboxEmail == "" {
		return nil
	}

	name := prof.DisplayName
	if name == "" {
		name = "there"
	}

	if err := t.notifier.Send(ctx, mailer.SendParams{
		To:       prof.MailboxEmail,
		Template: reconnectTemplate,
		Data: map[string]string{
			"Name":    name,
			"Mailbox": prof.MailboxEmail,
		},
	}); err != nil {
		return err
	}

	t.logger.InfoContext(ctx, "reconnect notification sent", slog.String("user_id", p.UserID))
	return nil
}

// NewRenderer returns a renderer over the embedded notification templates.
func NewRenderer() *mailer.Renderer {
	return mailer.NewRendererWithConfig(templates, mailer.RendererConfig{
		TemplateDir: "templates",
		LayoutDir:   "templates/layouts",
	})
}
