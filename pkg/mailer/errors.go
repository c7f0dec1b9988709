package mailer

import "errors"

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("mailer: email must have at least one recipient")

	// ErrNoSubject indicates no subject was provided.
	ErrNoSubject = errors.New("mailer: email must have a subject")

	// ErrNoContent indicates neither HTML nor text content was provided.
	ErrNoContent = errors.New("mailer: email must have content")

	// ErrTemplateNotFound indicates the template file was not found.
	ErrTemplateNotFound = errors.New("mailer: template not found")

	// ErrLayoutNotFound indicates the layout file was not found.
	ErrLayoutNotFound = errors.New("mailer: layout not found")

	// ErrRenderFailed indicates template rendering failed.
	ErrRenderFailed = errors.New("mailer: failed to render template")

	// ErrSendFailed indicates email sending failed.
	ErrSendFailed = errors.New("mailer: failed to send email")

	// ErrInvalidFrontmatter indicates invalid YAML front matter.
	ErrInvalidFrontmatter = errors.New("mailer: invalid frontmatter")

	// ErrAuthExpired marks a send rejected because the credential is expired
	// or no longer authorized. Retrying with the same token will not help.
	ErrAuthExpired = errors.New("mailer: authorization expired")

	// ErrTransient marks a send that may succeed if retried: timeouts,
	// network failures, rate limiting and provider 5xx responses.
	ErrTransient = errors.New("mailer: transient provider failure")

	// ErrRejected marks a permanent per-message rejection such as an invalid
	// address or a provider refusing the message.
	ErrRejected = errors.New("mailer: message rejected")
)
