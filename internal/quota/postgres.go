package quota

import (
	"context"
	"time"

	"github.com/dmitrymomot/courier/pkg/db"
)

// PostgresStore keeps usage in the send_quotas table, one row per user.
type PostgresStore struct {
	q db.Querier
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

// Reserve is a single upsert: the row lock taken by ON CONFLICT makes the
// limit check and the increment atomic per user. A row from an earlier day
// is reset in the same statement.
func (p *PostgresStore) Reserve(ctx context.Context, userID string, day time.Time, n, limit int) (int, bool, error) {
	const query = `
		INSERT INTO send_quotas AS q (user_id, day, used, updated_at)
		SELECT $1::text, $2::date, $3::int, now()
		WHERE $3::int <= $4::int
		ON CONFLICT (user_id) DO UPDATE SET
			day = EXCLUDED.day,
			used = CASE WHEN q.day = EXCLUDED.day THEN q.used + EXCLUDED.used ELSE EXCLUDED.used END,
			updated_at = now()
		WHERE (CASE WHEN q.day = EXCLUDED.day THEN q.used ELSE 0 END) + EXCLUDED.used <= $4::int
		RETURNING used`

	var used int
	err := p.q.QueryRow(ctx, query, userID, day, n, limit).Scan(&used)
	if err != nil {
		if db.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return used, true, nil
}

func (p *PostgresStore) Release(ctx context.Context, userID string, day time.Time, n int) error {
	const query = `
		UPDATE send_quotas
		SET used = GREATEST(used - $3, 0), updated_at = now()
		WHERE user_id = $1 AND day = $2::date`

	_, err := p.q.Exec(ctx, query, userID, day, n)
	return err
}

func (p *PostgresStore) Used(ctx context.Context, userID string, day time.Time) (int, error) {
	const query = `
		SELECT COALESCE(
			(SELECT used FROM send_quotas WHERE user_id = $1 AND day = $2::date),
			0)`

	var used int
	if err := p.q.QueryRow(ctx, query, userID, day).Scan(&used); err != nil {
		return 0, err
	}
	return used, nil
}

func (p *PostgresStore) DeleteBefore(ctx context.Context, day time.Time) (int64, error) {
	tag, err := p.q.Exec(ctx, `DELETE FROM send_quotas WHERE day < $1::date`, day)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
