package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/courier/pkg/db"
)

// PostgresStore keeps audit records in the campaign_audit table.
type PostgresStore struct {
	q db.Querier
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

func (s *PostgresStore) Insert(ctx context.Context, rec *Record) error {
	prepare(rec, time.Now())

	const query = `
		INSERT INTO campaign_audit
			(id, user_id, name, subject, mode, recipient_count, sent_count, failed_count, skipped_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.q.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Name,
		rec.Subject,
		rec.Mode,
		rec.RecipientCount,
		rec.SentCount,
		rec.FailedCount,
		rec.SkippedCount,
		rec.CreatedAt,
	)
	return err
}

func (s *PostgresStore) List(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, user_id, name, subject, mode, recipient_count, sent_count, failed_count, skipped_count, created_at
		FROM campaign_audit
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var rec Record
		err := row.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Name,
			&rec.Subject,
			&rec.Mode,
			&rec.RecipientCount,
			&rec.SentCount,
			&rec.FailedCount,
			&rec.SkippedCount,
			&rec.CreatedAt,
		)
		return rec, err
	})
}
