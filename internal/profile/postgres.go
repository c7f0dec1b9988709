package profile

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/courier/pkg/db"
)

// PostgresStore keeps profiles in the mailbox_profiles table.
type PostgresStore struct {
	q db.Querier
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

const profileColumns = `user_id, mailbox_email, display_name, connected, daily_send_limit, connected_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, userID string) (*Profile, error) {
	row := s.q.QueryRow(ctx, `SELECT `+profileColumns+` FROM mailbox_profiles WHERE user_id = $1`, userID)
	return scanProfile(row)
}

func (s *PostgresStore) Connect(ctx context.Context, userID, email, displayName string) (*Profile, error) {
	const query = `
		INSERT INTO mailbox_profiles (user_id, mailbox_email, display_name, connected, connected_at, updated_at)
		VALUES ($1, $2, $3, TRUE, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			mailbox_email = EXCLUDED.mailbox_email,
			display_name = EXCLUDED.display_name,
			connected = TRUE,
			connected_at = now(),
			updated_at = now()
		RETURNING ` + profileColumns

	return scanProfile(s.q.QueryRow(ctx, query, userID, email, displayName))
}

func (s *PostgresStore) Disconnect(ctx context.Context, userID string) error {
	_, err := s.q.Exec(ctx,
		`UPDATE mailbox_profiles SET connected = FALSE, updated_at = now() WHERE user_id = $1`,
		userID)
	return err
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.UserID,
		&p.MailboxEmail,
		&p.DisplayName,
		&p.Connected,
		&p.DailySendLimit,
		&p.ConnectedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
