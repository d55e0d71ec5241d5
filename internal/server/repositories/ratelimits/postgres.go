// Package ratelimits provides a PostgreSQL-backed ratelimit.Store so that
// several server instances share counters and lockouts.
package ratelimits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sanposhin/internal/dbx"
	"github.com/dmitrijs2005/sanposhin/internal/ratelimit"
)

// PostgresRepository stores rate limit state keyed by "<policy>:<identity>"
// over dbx.DBTX (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

var _ ratelimit.Store = (*PostgresRepository)(nil)

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the state for key. ok is false when no row exists.
func (r *PostgresRepository) Get(ctx context.Context, key string) (ratelimit.State, bool, error) {
	query := `
		SELECT count, window_start, lock_until
		FROM rate_limits
		WHERE key = $1
	`
	var st ratelimit.State
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&st.Count, &st.WindowStart, &st.LockUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ratelimit.State{}, false, nil
		}
		return ratelimit.State{}, false, fmt.Errorf("db error: %w", err)
	}
	return st, true, nil
}

// Set upserts the state for key.
func (r *PostgresRepository) Set(ctx context.Context, key string, st ratelimit.State) error {
	query := `
		INSERT INTO rate_limits (key, count, window_start, lock_until)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key)
		DO UPDATE SET
			count = EXCLUDED.count,
			window_start = EXCLUDED.window_start,
			lock_until = EXCLUDED.lock_until
	`
	if _, err := r.db.ExecContext(ctx, query, key, st.Count, st.WindowStart, st.LockUntil); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the state for key. Deleting a missing key is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	query := `
		DELETE FROM rate_limits
		WHERE key = $1
	`
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Sweep drops rows whose window started before cutoff and whose lock, if
// any, has elapsed. Both arguments are epoch ms.
func (r *PostgresRepository) Sweep(ctx context.Context, cutoff, now int64) (int64, error) {
	query := `
		DELETE FROM rate_limits
		WHERE window_start < $1 AND lock_until <= $2
	`
	res, err := r.db.ExecContext(ctx, query, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
