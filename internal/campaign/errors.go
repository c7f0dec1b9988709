package campaign

import "errors"

var (
	// ErrUnauthorized is returned when the context carries no user.
	ErrUnauthorized = errors.New("campaign: unauthenticated caller")

	// ErrMissingSubject is returned when the subject is blank.
	ErrMissingSubject = errors.New("campaign: subject is required")

	// ErrMissingBody is returned when the body is blank, including after
	// sanitization removed everything.
	ErrMissingBody = errors.New("campaign: body is required")

	// ErrInvalidMode is returned for a mode other than real or test.
	ErrInvalidMode = errors.New("campaign: invalid send mode")

	// ErrInvalidFormat is returned for an unknown body format.
	ErrInvalidFormat = errors.New("campaign: invalid body format")

	// ErrAttachment is returned when an attachment cannot be loaded or
	// exceeds the size limit. No message is sent.
	ErrAttachment = errors.New("campaign: invalid attachment")

	// ErrTestSendFailed is returned by SendTest when the message to the
	// user's own mailbox was not delivered.
	ErrTestSendFailed = errors.New("campaign: test send was not delivered")
)
