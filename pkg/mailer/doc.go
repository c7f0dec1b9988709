// Package mailer defines the provider-neutral email model and the sender
// contract shared by campaign delivery and system notifications.
//
// # Components
//
//   - Email and Attachment: a fully prepared message
//   - Sender: delivers an Email through a system-owned account (see resend)
//   - Failure classes: ErrAuthExpired, ErrTransient and ErrRejected let callers
//     decide between refreshing credentials, retrying and giving up
//   - Renderer and Mailer: markdown notification templates with YAML front matter
//
// Per-user delivery through a connected mailbox lives in the gmail subpackage,
// which authenticates every call with the user's own access token.
//
// # Templates
//
// Notification templates are markdown files with optional front matter:
//
//	---
//	Subject: Reconnect {{.Mailbox}}
//	---
//
//	Hello {{.Name}}, we could no longer send from **{{.Mailbox}}**.
//
// The Subject field supports Go template syntax.
//
// # Classifying failures
//
//	switch mailer.Classify(err) {
//	case mailer.ClassAuthExpired:
//		// refresh the token, then retry once
//	case mailer.ClassTransient:
//		// back off and retry
//	case mailer.ClassRejected:
//		// record a permanent failure
//	}
package mailer
