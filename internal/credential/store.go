package credential

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrymomot/courier/pkg/secrets"
)

// Records is the persistence backend for sealed credentials.
// Get returns ErrNotFound when the user has no row; Upsert replaces the row
// for Record.UserID in a single statement.
type Records interface {
	Get(ctx context.Context, userID string) (*Record, error)
	Upsert(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, userID string) error
}

const (
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
)

// Store encrypts and decrypts credentials on top of a Records backend.
type Store struct {
	records Records
	cipher  *secrets.Cipher
	now     func() time.Time
}

// NewStore creates a credential store.
func NewStore(records Records, cipher *secrets.Cipher) *Store {
	return &Store{
		records: records,
		cipher:  cipher,
		now:     time.Now,
	}
}

// Get returns the decrypted credential for userID.
func (s *Store) Get(ctx context.Context, userID string) (*Credential, error) {
	rec, err := s.records.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrStorage, err)
	}

	access, err := s.cipher.Open(rec.AccessToken, aad(userID, fieldAccessToken))
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	cred := &Credential{
		UserID:      rec.UserID,
		AccessToken: Secret(access),
		Expiry:      rec.Expiry,
		Scopes:      rec.Scopes,
		UpdatedAt:   rec.UpdatedAt,
	}

	if len(rec.RefreshToken) > 0 {
		refresh, err := s.cipher.Open(rec.RefreshToken, aad(userID, fieldRefreshToken))
		if err != nil {
			return nil, errors.Join(ErrStorage, err)
		}
		cred.RefreshToken = Secret(refresh)
	}

	return cred, nil
}

// Put seals and upserts the credential keyed by its user id.
func (s *Store) Put(ctx context.Context, cred *Credential) error {
	if cred == nil || strings.TrimSpace(cred.UserID) == "" || cred.AccessToken.IsZero() {
		return ErrInvalidCredential
	}

	rec := &Record{
		UserID:      cred.UserID,
		AccessToken: s.cipher.Seal([]byte(cred.AccessToken.Reveal()), aad(cred.UserID, fieldAccessToken)),
		Expiry:      cred.Expiry.UTC(),
		Scopes:      cred.Scopes,
		UpdatedAt:   s.now().UTC(),
	}
	if cred.HasRefreshToken() {
		rec.RefreshToken = s.cipher.Seal([]byte(cred.RefreshToken.Reveal()), aad(cred.UserID, fieldRefreshToken))
	}

	if err := s.records.Upsert(ctx, rec); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

// Delete removes the user's credential. Deleting a missing credential is not
// an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.records.Delete(ctx, userID); err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

// aad binds a ciphertext to its owner and column so sealed values cannot be
// swapped between rows or fields.
func aad(userID, field string) []byte {
	return []byte(userID + ":" + field)
}
