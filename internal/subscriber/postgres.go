package subscriber

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/courier/internal/recipient"
	"github.com/dmitrymomot/courier/pkg/db"
)

// PostgresStore keeps subscribers in the subscribers table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// UpsertMany writes the whole list in one transaction.
func (s *PostgresStore) UpsertMany(ctx context.Context, userID string, list []recipient.Recipient) (int, error) {
	const query = `
		INSERT INTO subscribers (id, user_id, email, email_key, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, email_key) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = now()`

	return db.InTx(ctx, s.pool, func(tx pgx.Tx) (int, error) {
		batch := &pgx.Batch{}
		for _, r := range list {
			batch.Queue(query, uuid.New(), userID, r.Email, r.Key(), r.FirstName, r.LastName)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, err
		}
		return len(list), nil
	})
}

func (s *PostgresStore) List(ctx context.Context, userID string, limit, offset int) ([]Subscriber, error) {
	const query = `
		SELECT id, user_id, email, first_name, last_name, created_at, updated_at
		FROM subscribers
		WHERE user_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`

	// LIMIT NULL means no limit.
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := s.pool.Query(ctx, query, userID, lim, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Subscriber, error) {
		var sub Subscriber
		err := row.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.Email,
			&sub.FirstName,
			&sub.LastName,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		)
		return sub, err
	})
}
