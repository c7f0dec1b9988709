// Package token hands out valid mailbox access tokens, refreshing them on
// demand with at most one refresh in flight per user.
package token

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/courier/internal/credential"
	"github.com/dmitrymomot/courier/pkg/oauth"
)

// Store is the credential persistence the manager needs.
type Store interface {
	Get(ctx context.Context, userID string) (*credential.Credential, error)
	Put(ctx context.Context, cred *credential.Credential) error
	Delete(ctx context.Context, userID string) error
}

// Refresher mints a new access token from a refresh token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Locker is a cross-process mutex keyed by string.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Notifier is told when a user's credential was dropped and they must
// reconnect their mailbox.
type Notifier interface {
	ReauthorizationRequired(ctx context.Context, userID string) error
}

// Manager returns valid access tokens for users, refreshing them through the
// provider when they are expired or about to expire.
type Manager struct {
	store     Store
	refresher Refresher
	locker    Locker
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
	group     singleflight.Group
	margin    time.Duration
	timeout   time.Duration
}

// NewManager creates a token manager.
func NewManager(store Store, refresher Refresher, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		refresher: refresher,
	}
	defaults(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AcquireValidToken returns an access token that stays valid for at least the
// refresh margin. No provider call is made while the stored token is fresh.
func (m *Manager) AcquireValidToken(ctx context.Context, userID string) (credential.Secret, error) {
	cred, err := m.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if cred.ValidAt(m.now(), m.margin) {
		return cred.AccessToken, nil
	}
	return m.refresh(ctx, userID, cred.AccessToken)
}

// ForceRefresh replaces an access token the provider rejected. If the stored
// token already differs from stale and is fresh, it is returned without a
// provider call.
func (m *Manager) ForceRefresh(ctx context.Context, userID string, stale credential.Secret) (credential.Secret, error) {
	return m.refresh(ctx, userID, stale)
}

// refresh joins or starts the single in-flight refresh for userID.
// The flight runs detached from the caller's cancellation so that one caller
// giving up does not fail the others waiting on it.
func (m *Manager) refresh(ctx context.Context, userID string, stale credential.Secret) (credential.Secret, error) {
	ch := m.group.DoChan(userID, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.doRefresh(fctx, userID, stale)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(credential.Secret), nil
	}
}

func (m *Manager) doRefresh(ctx context.Context, userID string, stale credential.Secret) (credential.Secret, error) {
	if m.locker != nil {
		release, err := m.locker.Acquire(ctx, userID)
		if err != nil {
			m.logger.WarnContext(ctx, "token refresh lock unavailable",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return "", errors.Join(ErrRefreshUnavailable, err)
		}
		defer release()
	}

	// Re-read under the lock: another caller or process may have refreshed.
	cred, err := m.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if cred.AccessToken != stale && cred.ValidAt(m.now(), m.margin) {
		return cred.AccessToken, nil
	}

	if !cred.HasRefreshToken() {
		return "", m.drop(ctx, userID, "no refresh token")
	}

	tok, err := m.refresher.Refresh(ctx, cred.RefreshToken.Reveal())
	switch {
	case errors.Is(err, oauth.ErrInvalidGrant), errors.Is(err, oauth.ErrMissingRefreshToken):
		return "", m.drop(ctx, userID, "refresh token rejected")
	case errors.Is(err, oauth.ErrInvalidClient):
		m.logger.ErrorContext(ctx, "oauth client rejected by provider, check the client id and secret",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return "", errors.Join(ErrRefreshUnavailable, err)
	case err != nil:
		m.logger.WarnContext(ctx, "token refresh failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return "", errors.Join(ErrRefreshUnavailable, err)
	case tok == nil || tok.AccessToken == "":
		return "", ErrRefreshUnavailable
	}

	next := &credential.Credential{
		UserID:       userID,
		AccessToken:  credential.Secret(tok.AccessToken),
		RefreshToken: cred.RefreshToken,
		Expiry:       tok.Expiry,
		Scopes:       cred.Scopes,
	}
	if tok.RefreshToken != "" {
		next.RefreshToken = credential.Secret(tok.RefreshToken)
	}
	if next.Expiry.IsZero() {
		next.Expiry = m.now().Add(defaultAccessTTL)
	}

	if err := m.store.Put(ctx, next); err != nil {
		return "", err
	}

	m.logger.InfoContext(ctx, "access token refreshed",
		slog.String("user_id", userID),
		slog.Time("expires_at", next.Expiry),
	)
	return next.AccessToken, nil
}

func (m *Manager) load(ctx context.Context, userID string) (*credential.Credential, error) {
	cred, err := m.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	return cred, nil
}

// drop deletes a credential that can no longer be refreshed and notifies the
// user. It always returns ErrReauthorizationRequired.
func (m *Manager) drop(ctx context.Context, userID, reason string) error {
	m.logger.WarnContext(ctx, "mailbox credential dropped",
		slog.String("user_id", userID),
		slog.String("reason", reason),
	)

	if err := m.store.Delete(ctx, userID); err != nil {
		return errors.Join(ErrReauthorizationRequired, err)
	}

	if m.notifier != nil {
		if err := m.notifier.ReauthorizationRequired(ctx, userID); err != nil {
			m.logger.ErrorContext(ctx, "failed to notify reauthorization required",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}
	return ErrReauthorizationRequired
}
