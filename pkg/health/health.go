package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/courier/pkg/logger"
)

// Overall and per-check statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// Checks maps a dependency name to its check.
type Checks map[string]CheckFunc

// Optional marks a check whose failure degrades the service without making
// it unready: the probe still answers 200 with status "degraded".
func Optional(check CheckFunc) CheckFunc {
	return func(ctx context.Context) error {
		if err := check(ctx); err != nil {
			return optionalError{err}
		}
		return nil
	}
}

type optionalError struct{ error }

func (e optionalError) Unwrap() error { return e.error }

// Response is the JSON body of a readiness probe.
type Response struct {
	Status string           `json:"status"`
	Checks map[string]Check `json:"checks,omitempty"`
}

// Check is the outcome of a single check.
type Check struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Option configures the readiness probe.
type Option func(*prober)

// WithTimeout bounds the whole probe. Defaults to 5s.
func WithTimeout(d time.Duration) Option {
	return func(p *prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger logs failed checks at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(p *prober) {
		if l != nil {
			p.log = l
		}
	}
}

type prober struct {
	checks  Checks
	timeout time.Duration
	log     *slog.Logger
}

func newProber(checks Checks, opts ...Option) *prober {
	p := &prober{
		checks:  checks,
		timeout: 5 * time.Second,
		log:     logger.NewNope(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run executes all checks concurrently under one deadline.
func (p *prober) run(ctx context.Context) *Response {
	resp := &Response{Status: StatusHealthy}
	if len(p.checks) == 0 {
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	resp.Checks = make(map[string]Check, len(p.checks))

	for name, check := range p.checks {
		g.Go(func() error {
			result := p.one(ctx, name, check)

			mu.Lock()
			defer mu.Unlock()
			resp.Checks[name] = result
			resp.Status = worse(resp.Status, result.Status)
			return nil
		})
	}
	_ = g.Wait()

	return resp
}

func (p *prober) one(ctx context.Context, name string, check CheckFunc) Check {
	start := time.Now()
	err := check(ctx)
	result := Check{Status: StatusHealthy, LatencyMS: time.Since(start).Milliseconds()}
	if err == nil {
		return result
	}

	result.Status = StatusUnhealthy
	var opt optionalError
	if errors.As(err, &opt) {
		result.Status = StatusDegraded
		err = opt.error
	}
	if ctx.Err() != nil {
		err = ErrCheckTimeout
	}
	result.Error = err.Error()

	p.log.WarnContext(ctx, "health check failed",
		slog.String("check", name),
		slog.String("status", result.Status),
		slog.String("error", result.Error),
	)
	return result
}

var severity = map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}

func worse(a, b string) string {
	if severity[b] > severity[a] {
		return b
	}
	return a
}
