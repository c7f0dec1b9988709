// Package mailbox connects and disconnects a user's sending mailbox. Besides
// the token manager it is the only writer of stored credentials.
package mailbox

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/courier/internal/credential"
	"github.com/dmitrymomot/courier/internal/profile"
	"github.com/dmitrymomot/courier/internal/tasks"
	"github.com/dmitrymomot/courier/pkg/cache"
	"github.com/dmitrymomot/courier/pkg/job"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/oauth"
)

var (
	// ErrInvalidState is returned when the callback state is unknown,
	// expired or already used.
	ErrInvalidState = errors.New("mailbox: invalid or expired oauth state")

	// ErrNoRefreshToken is returned when the provider did not issue a
	// refresh token, so the mailbox could not be used offline.
	ErrNoRefreshToken = errors.New("mailbox: provider did not issue a refresh token")

	// ErrExchangeFailed is returned when the authorization code could not
	// be traded for tokens.
	ErrExchangeFailed = errors.New("mailbox: authorization code exchange failed")
)

const (
	defaultStateTTL = 10 * time.Minute
	statePrefix     = "oauth-state:"
)

// Provider is the OAuth surface used to connect a mailbox.
type Provider interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*oauth.UserInfo, error)
	Revoke(ctx context.Context, token string) error
}

// Credentials stores encrypted mailbox credentials.
type Credentials interface {
	Get(ctx context.Context, userID string) (*credential.Credential, error)
	Put(ctx context.Context, cred *credential.Credential) error
	Delete(ctx context.Context, userID string) error
}

// Enqueuer schedules background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error
}

// Service runs the mailbox connect and disconnect flows.
type Service struct {
	provider    Provider
	credentials Credentials
	profiles    profile.Store
	states      cache.Cache[string]
	enqueuer    Enqueuer
	logger      *slog.Logger
	now         func() time.Time
	stateTTL    time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithEnqueuer sets where reconnect notifications are scheduled. Without it
// users are only marked disconnected.
func WithEnqueuer(e Enqueuer) Option {
	return func(s *Service) {
		s.enqueuer = e
	}
}

// WithStateTTL sets how long a connect link stays valid. Default: 10m.
func WithStateTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stateTTL = d
		}
	}
}

// WithLogger sets the logger for connect and disconnect events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for credential timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a mailbox service.
func NewService(provider Provider, credentials Credentials, profiles profile.Store, states cache.Cache[string], opts ...Option) *Service {
	s := &Service{
		provider:    provider,
		credentials: credentials,
		profiles:    profiles,
		states:      states,
		logger:      logger.NewNope(),
		now:         time.Now,
		stateTTL:    defaultStateTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConnectURL returns the provider consent URL for userID. The embedded
// state is single use and expires after the state TTL.
func (s *Service) ConnectURL(ctx context.Context, userID string) (string, error) {
	state := rand.Text()
	if err := s.states.Set(ctx, statePrefix+state, userID, s.stateTTL); err != nil {
		return "", fmt.Errorf("mailbox: store oauth state: %w", err)
	}
	return s.provider.AuthCodeURL(state), nil
}

// Callback completes the consent flow and returns the connected profile.
func (s *Service) Callback(ctx context.Context, state, code string) (*profile.Profile, error) {
	if state == "" || code == "" {
		return nil, ErrInvalidState
	}

	userID, err := s.states.Take(ctx, statePrefix+state)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	tok, err := s.provider.Exchange(ctx, code)
	if err != nil {
		// The provider error may echo the code.
		s.logger.WarnContext(ctx, "oauth code exchange failed", slog.String("user_id", userID))
		return nil, ErrExchangeFailed
	}

	info, err := s.provider.FetchUserInfo(ctx, tok)
	if err != nil {
		return nil, err
	}

	if tok.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	cred := &credential.Credential{
		UserID:       userID,
		AccessToken:  credential.Secret(tok.AccessToken),
		RefreshToken: credential.Secret(tok.RefreshToken),
		Expiry:       tok.Expiry,
		Scopes:       grantedScopes(tok),
		UpdatedAt:    s.now().UTC(),
	}
	if err := s.credentials.Put(ctx, cred); err != nil {
		return nil, err
	}

	p, err := s.profiles.Connect(ctx, userID, info.Email, info.Name)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "mailbox connected",
		slog.String("user_id", userID),
		slog.String("mailbox", info.Email),
	)
	return p, nil
}

// Disconnect revokes the grant at the provider when possible, then deletes
// the credential and marks the profile disconnected.
func (s *Service) Disconnect(ctx context.Context, userID string) error {
	cred, err := s.credentials.Get(ctx, userID)
	switch {
	case err == nil:
		tok := cred.RefreshToken
		if tok.IsZero() {
			tok = cred.AccessToken
		}
		if err := s.provider.Revoke(ctx, tok.Reveal()); err != nil {
			s.logger.WarnContext(ctx, "mailbox revoke failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	case errors.Is(err, credential.ErrNotFound):
	default:
		return err
	}

	if err := s.credentials.Delete(ctx, userID); err != nil {
		return err
	}
	if err := s.profiles.Disconnect(ctx, userID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "mailbox disconnected", slog.String("user_id", userID))
	return nil
}

// ReauthorizationRequired marks the user disconnected after their
// credential was dropped and schedules a reconnect notification.
func (s *Service) ReauthorizationRequired(ctx context.Context, userID string) error {
	if err := s.profiles.Disconnect(ctx, userID); err != nil {
		return err
	}
	if s.enqueuer == nil {
		return nil
	}
	return s.enqueuer.Enqueue(ctx, tasks.NotifyReconnectName,
		tasks.ReconnectPayload{UserID: userID},
		job.UniqueFor(time.Hour),
		job.UniqueKey(userID),
	)
}

func grantedScopes(tok *oauth2.Token) []string {
	raw, _ := tok.Extra("scope").(string)
	return strings.Fields(raw)
}
