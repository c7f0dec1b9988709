package mailer

import "context"

// Sender delivers email through a system-owned provider account.
type Sender interface {
	// Send delivers an email message.
	// The Email must have To, Subject, and content already set.
	Send(ctx context.Context, email *Email) error
}
