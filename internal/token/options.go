package token

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/courier/pkg/logger"
)

const (
	defaultRefreshMargin  = 60 * time.Second
	defaultRefreshTimeout = 10 * time.Second
	defaultAccessTTL      = time.Hour
)

// Option configures a Manager.
type Option func(*Manager)

// WithRefreshMargin sets how long before expiry a token is considered stale.
func WithRefreshMargin(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.margin = d
		}
	}
}

// WithRefreshTimeout bounds a single refresh, including lock acquisition.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLocker serializes refreshes across processes. The lock key is the
// bare user id; namespace it in the Locker (redis.WithLockPrefix).
func WithLocker(l Locker) Option {
	return func(m *Manager) {
		m.locker = l
	}
}

// WithNotifier is called after a credential was dropped because it could no
// longer be refreshed.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func defaults(m *Manager) {
	m.margin = defaultRefreshMargin
	m.timeout = defaultRefreshTimeout
	m.logger = logger.NewNope()
	m.now = time.Now
}
