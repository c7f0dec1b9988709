// Package credential persists one encrypted OAuth credential per user.
//
// The Store is the encryption boundary: token material is sealed with
// XChaCha20-Poly1305 before it reaches a Records backend and is only ever
// handed back as a Secret. Only the token lifecycle manager and the mailbox
// connect/disconnect flows are expected to hold a *Store.
package credential

import (
	"time"
)

// Credential is a decrypted OAuth credential.
type Credential struct {
	UserID       string
	AccessToken  Secret
	RefreshToken Secret
	Expiry       time.Time
	Scopes       []string
	UpdatedAt    time.Time
}

// HasRefreshToken reports whether the credential can be refreshed.
func (c *Credential) HasRefreshToken() bool {
	return c != nil && !c.RefreshToken.IsZero()
}

// ValidAt reports whether the access token is still valid at t plus margin.
func (c *Credential) ValidAt(t time.Time, margin time.Duration) bool {
	if c == nil || c.AccessToken.IsZero() {
		return false
	}
	return c.Expiry.After(t.Add(margin))
}

// Record is the at-rest form of a credential. Token fields hold ciphertext.
type Record struct {
	UserID       string
	AccessToken  []byte
	RefreshToken []byte
	Expiry       time.Time
	Scopes       []string
	UpdatedAt    time.Time
}
