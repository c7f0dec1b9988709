package credential

import "errors"

var (
	// ErrNotFound is returned when no credential is stored for the user.
	ErrNotFound = errors.New("credential: not found")

	// ErrStorage is returned when a credential could not be read, written or
	// decrypted. It is fatal for the current operation.
	ErrStorage = errors.New("credential: storage failure")

	// ErrInvalidCredential is returned by Put when the credential is missing
	// its user id or access token.
	ErrInvalidCredential = errors.New("credential: invalid credential")
)
