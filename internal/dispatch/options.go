package dispatch

import (
	"log/slog"
	"time"
)

const (
	defaultWorkers     = 4
	defaultMaxAttempts = 3
	defaultSendTimeout = 15 * time.Second
	defaultBaseBackoff = 500 * time.Millisecond
	defaultMaxBackoff  = 5 * time.Second
)

// Option configures a Pool.
type Option func(*Pool)

// WithWorkers sets how many sends run concurrently.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithMaxAttempts sets the attempts per recipient for transient failures,
// the first attempt included.
func WithMaxAttempts(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithSendTimeout bounds one provider call.
func WithSendTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.sendTimeout = d
		}
	}
}

// WithBackoff sets the base and cap of the full-jitter retry delay.
func WithBackoff(base, max time.Duration) Option {
	return func(p *Pool) {
		if base > 0 {
			p.baseBackoff = base
		}
		if max >= base && max > 0 {
			p.maxBackoff = max
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}
