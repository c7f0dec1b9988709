package credential

import (
	"context"

	"github.com/dmitrymomot/courier/pkg/db"
)

// PostgresRecords stores sealed credentials in the mailbox_credentials table.
type PostgresRecords struct {
	q db.Querier
}

// NewPostgresRecords creates a Postgres-backed Records.
func NewPostgresRecords(q db.Querier) *PostgresRecords {
	return &PostgresRecords{q: q}
}

func (p *PostgresRecords) Get(ctx context.Context, userID string) (*Record, error) {
	const query = `
		SELECT user_id, access_token, refresh_token, expires_at, scopes, updated_at
		FROM mailbox_credentials
		WHERE user_id = $1`

	var rec Record
	err := p.q.QueryRow(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.AccessToken,
		&rec.RefreshToken,
		&rec.Expiry,
		&rec.Scopes,
		&rec.UpdatedAt,
	)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (p *PostgresRecords) Upsert(ctx context.Context, rec *Record) error {
	const query = `
		INSERT INTO mailbox_credentials (user_id, access_token, refresh_token, expires_at, scopes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			scopes = EXCLUDED.scopes,
			updated_at = EXCLUDED.updated_at`

	scopes := rec.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	_, err := p.q.Exec(ctx, query,
		rec.UserID,
		rec.AccessToken,
		rec.RefreshToken,
		rec.Expiry,
		scopes,
		rec.UpdatedAt,
	)
	return err
}

func (p *PostgresRecords) Delete(ctx context.Context, userID string) error {
	_, err := p.q.Exec(ctx, `DELETE FROM mailbox_credentials WHERE user_id = $1`, userID)
	return err
}
