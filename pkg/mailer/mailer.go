package mailer

import (
	"bytes"
	"context"
	"errors"
	texttemplate "text/template"
)

// Mailer renders notification templates and delivers them through a Sender.
type Mailer struct {
	sender   Sender
	renderer *Renderer
	config   Config
}

// New creates a notification Mailer.
func New(sender Sender, renderer *Renderer, cfg Config) *Mailer {
	return &Mailer{sender: sender, renderer: renderer, config: cfg}
}

// SendParams describes a templated notification.
type SendParams struct {
	To       string // Single recipient
	Template string // Template filename (e.g. "reconnect_required.md")
	Data     any    // Template data

	Subject string // Overrides the template subject
	Layout  string // Overrides the default layout
	ReplyTo string
}

// Send renders params.Template and sends it.
// Subject resolution: params.Subject, then template front matter, then the
// configured fallback.
func (m *Mailer) Send(ctx context.Context, params SendParams) error {
	if params.To == "" {
		return ErrNoRecipient
	}

	layout := params.Layout
	if layout == "" {
		layout = m.config.DefaultLayout
	}

	result, err := m.renderer.Render(layout, params.Template, params.Data)
	if err != nil {
		return errors.Join(ErrRenderFailed, err)
	}

	subject := params.Subject
	if subject == "" {
		if s, ok := result.Metadata["Subject"].(string); ok && s != "" {
			subject = s
		} else {
			subject = m.config.FallbackSubject
		}
	}

	subject, err = executeSubject(subject, params.Data)
	if err != nil {
		return errors.Join(ErrRenderFailed, err)
	}

	return m.SendRaw(ctx, &Email{
		To:      []string{params.To},
		Subject: subject,
		HTML:    result.HTML,
		Text:    result.Text,
		ReplyTo: params.ReplyTo,
	})
}

// SendRaw sends a pre-built email without template rendering.
func (m *Mailer) SendRaw(ctx context.Context, email *Email) error {
	if err := email.Validate(); err != nil {
		return err
	}
	if err := m.sender.Send(ctx, email); err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

func executeSubject(subject string, data any) (string, error) {
	tmpl, err := texttemplate.New("subject").Parse(subject)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
