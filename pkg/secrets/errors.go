package secrets

import "errors"

var (
	// ErrInvalidKey is returned when the key is missing or is not exactly
	// 64 lowercase hex characters.
	ErrInvalidKey = errors.New("secrets: key must be 64 lowercase hex characters")

	// ErrDecrypt is returned when a ciphertext is truncated, was tampered with,
	// or was sealed with different additional data.
	ErrDecrypt = errors.New("secrets: failed to decrypt value")
)
