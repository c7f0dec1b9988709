// Package subscriber keeps a user's audience. Writes are idempotent upserts
// keyed by the natural key (user id, lowercased email).
package subscriber

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/courier/internal/recipient"
)

// Subscriber is one audience member.
type Subscriber struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"-"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// Recipient converts the subscriber into a send target.
func (s Subscriber) Recipient() recipient.Recipient {
	return recipient.Recipient{Email: s.Email, FirstName: s.FirstName, LastName: s.LastName}
}

// Store persists subscribers. UpsertMany receives an already normalized,
// duplicate-free list and inserts or updates each entry by its natural key.
type Store interface {
	UpsertMany(ctx context.Context, userID string, list []recipient.Recipient) (int, error)
	// List returns subscribers oldest first. A non-positive limit returns all.
	List(ctx context.Context, userID string, limit, offset int) ([]Subscriber, error)
}

// Service validates input before it reaches the store.
type Service struct {
	store Store
}

// NewService creates a subscriber service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Import validates list, collapses duplicates keeping the first occurrence
// and upserts the rest. It returns how many subscribers were written.
func (s *Service) Import(ctx context.Context, userID string, list []recipient.Recipient) (int, error) {
	normalized, err := recipient.Normalize(list)
	if err != nil {
		return 0, err
	}
	if len(normalized) == 0 {
		return 0, recipient.ErrEmptyRecipientList
	}
	return s.store.UpsertMany(ctx, userID, normalized)
}

// List returns a page of the user's subscribers.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Subscriber, error) {
	return s.store.List(ctx, userID, limit, max(offset, 0))
}

// Recipients returns the whole audience as send targets.
func (s *Service) Recipients(ctx context.Context, userID string) ([]recipient.Recipient, error) {
	subs, err := s.store.List(ctx, userID, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]recipient.Recipient, len(subs))
	for i, sub := range subs {
		out[i] = sub.Recipient()
	}
	return out, nil
}
