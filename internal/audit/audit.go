// Package audit records one entry per campaign send. Writes are best-effort:
// callers log failures and never report them as send failures.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record describes a completed campaign send.
type Record struct {
	CreatedAt      time.Time `json:"created_at"`
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Subject        string    `json:"subject"`
	Mode           string    `json:"mode"`
	RecipientCount int       `json:"recipient_count"`
	SentCount      int       `json:"sent_count"`
	FailedCount    int       `json:"failed_count"`
	SkippedCount   int       `json:"skipped_count"`
}

// Store persists audit records.
type Store interface {
	Insert(ctx context.Context, rec *Record) error
	// List returns the user's most recent records first.
	List(ctx context.Context, userID string, limit int) ([]Record, error)
}

// prepare fills the id and timestamp when missing.
func prepare(rec *Record, now time.Time) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC()
	}
}
