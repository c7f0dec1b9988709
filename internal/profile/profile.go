// Package profile stores the user's connected mailbox profile: its address,
// display name and whether it is currently connected.
package profile

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the user has no profile.
var ErrNotFound = errors.New("profile: not found")

// Profile is a user's mailbox profile.
type Profile struct {
	ConnectedAt    *time.Time `json:"connected_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
	UserID         string     `json:"user_id"`
	MailboxEmail   string     `json:"mailbox_email"`
	DisplayName    string     `json:"display_name"`
	DailySendLimit int        `json:"daily_send_limit,omitempty"`
	Connected      bool       `json:"connected"`
}

// Store persists profiles.
type Store interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	// Connect upserts the mailbox identity and marks the profile connected.
	Connect(ctx context.Context, userID, email, displayName string) (*Profile, error)
	// Disconnect marks the profile disconnected. Unknown users are ignored.
	Disconnect(ctx context.Context, userID string) error
}

// Limits adapts a Store to quota.Limits: a user's daily limit is read from
// their profile, and a missing profile means the default.
type Limits struct {
	Store Store
}

// DailyLimit returns the profile override, or 0 for the default.
func (l Limits) DailyLimit(ctx context.Context, userID string) (int, error) {
	p, err := l.Store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return p.DailySendLimit, nil
}
