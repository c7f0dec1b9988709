package token

import "errors"

var (
	// ErrNotConnected is returned when the user has never connected a mailbox
	// or has disconnected it.
	ErrNotConnected = errors.New("token: mailbox not connected")

	// ErrReauthorizationRequired is returned when the stored credential can no
	// longer be refreshed. The credential has been deleted and the user must
	// go through the OAuth flow again.
	ErrReauthorizationRequired = errors.New("token: mailbox reauthorization required")

	// ErrRefreshUnavailable is returned when a refresh could not complete for
	// a transient reason. The credential is kept and a later call may succeed.
	ErrRefreshUnavailable = errors.New("token: refresh temporarily unavailable")
)
