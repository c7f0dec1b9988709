package mailer

import (
	"context"
	"errors"
	"net"
)

// Class is the retry class of a send failure.
type Class int

const (
	// ClassNone means the send succeeded.
	ClassNone Class = iota
	// ClassTransient failures may be retried.
	ClassTransient
	// ClassAuthExpired failures need a fresh access token.
	ClassAuthExpired
	// ClassRejected failures are permanent for this message.
	ClassRejected
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransient:
		return "transient"
	case ClassAuthExpired:
		return "auth_expired"
	case ClassRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Classify maps a send error to its retry class.
// Unmarked timeouts and network errors count as transient; anything else that
// carries no class is treated as a permanent rejection.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrAuthExpired):
		return ClassAuthExpired
	case errors.Is(err, ErrTransient):
		return ClassTransient
	case errors.Is(err, ErrRejected):
		return ClassRejected
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}
	return ClassRejected
}
