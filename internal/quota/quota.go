// Package quota enforces the per-user daily send limit.
//
// Sends reserve the resolved recipient count up front in one atomic
// check-and-increment, then release whatever was not sent. Two concurrent
// sends can therefore never both pass a check only one of them fits in.
// Usage resets at 00:00 UTC.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuotaExceeded is wrapped by *ExceededError.
	ErrQuotaExceeded = errors.New("quota: daily send quota exceeded")

	// ErrInvalidAmount is returned for non-positive reservations.
	ErrInvalidAmount = errors.New("quota: amount must be positive")
)

// ExceededError reports how much of the daily quota was left.
type ExceededError struct {
	Requested int
	Remaining int
	Limit     int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota: requested %d sends, %d of %d remaining today", e.Requested, e.Remaining, e.Limit)
}

func (e *ExceededError) Unwrap() error { return ErrQuotaExceeded }

// Store persists per-user daily usage.
//
// Reserve adds n to the user's usage for day if the result stays within
// limit and reports the new usage; ok is false and nothing changes otherwise.
// A row left over from an earlier day counts as zero usage.
type Store interface {
	Reserve(ctx context.Context, userID string, day time.Time, n, limit int) (used int, ok bool, err error)
	Release(ctx context.Context, userID string, day time.Time, n int) error
	Used(ctx context.Context, userID string, day time.Time) (int, error)
	DeleteBefore(ctx context.Context, day time.Time) (int64, error)
}

// Limits resolves a user's daily limit. A non-positive value falls back to
// the service default.
type Limits interface {
	DailyLimit(ctx context.Context, userID string) (int, error)
}

// Reservation is a successful Reserve. It remembers the day it was taken on
// so a send crossing midnight credits the right day.
type Reservation struct {
	Day    time.Time
	UserID string
	Count  int
}

// Status is a user's quota for today.
type Status struct {
	ResetsAt  time.Time `json:"resets_at"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
}

// Service applies the daily limit on top of a Store.
type Service struct {
	store        Store
	limits       Limits
	now          func() time.Time
	defaultLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithLimits enables per-user limit overrides.
func WithLimits(l Limits) Option {
	return func(s *Service) { s.limits = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a quota service with the given default daily limit.
func NewService(store Store, defaultLimit int, opts ...Option) *Service {
	s := &Service{
		store:        store,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reserve takes n sends from today's quota or fails with *ExceededError.
func (s *Service) Reserve(ctx context.Context, userID string, n int) (Reservation, error) {
	if n <= 0 {
		return Reservation{}, ErrInvalidAmount
	}

	limit, err := s.limit(ctx, userID)
	if err != nil {
		return Reservation{}, err
	}

	day := Day(s.now())
	_, ok, err := s.store.Reserve(ctx, userID, day, n, limit)
	if err != nil {
		return Reservation{}, fmt.Errorf("quota: reserve: %w", err)
	}
	if !ok {
		used, err := s.store.Used(ctx, userID, day)
		if err != nil {
			used = limit
		}
		return Reservation{}, &ExceededError{
			Requested: n,
			Remaining: max(limit-used, 0),
			Limit:     limit,
		}
	}

	return Reservation{UserID: userID, Day: day, Count: n}, nil
}

// Settle releases the part of a reservation that was not sent.
func (s *Service) Settle(ctx context.Context, res Reservation, sent int) error {
	unsent := res.Count - max(sent, 0)
	if res.Count == 0 || unsent <= 0 {
		return nil
	}
	if err := s.store.Release(ctx, res.UserID, res.Day, unsent); err != nil {
		return fmt.Errorf("quota: release: %w", err)
	}
	return nil
}

// Status reports today's usage for a user.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	limit, err := s.limit(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	now := s.now()
	used, err := s.store.Used(ctx, userID, Day(now))
	if err != nil {
		return Status{}, fmt.Errorf("quota: status: %w", err)
	}

	return Status{
		Limit:     limit,
		Used:      used,
		Remaining: max(limit-used, 0),
		ResetsAt:  Day(now).AddDate(0, 0, 1),
	}, nil
}

// Purge deletes usage rows from before today. Reads already treat them as
// zero; this only reclaims space.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	return s.store.DeleteBefore(ctx, Day(s.now()))
}

func (s *Service) limit(ctx context.Context, userID string) (int, error) {
	if s.limits == nil {
		return s.defaultLimit, nil
	}
	limit, err := s.limits.DailyLimit(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("quota: limit: %w", err)
	}
	if limit <= 0 {
		return s.defaultLimit, nil
	}
	return limit, nil
}

// Day truncates t to the start of its UTC day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
