package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/sanposhin/internal/dbx"
	"github.com/dmitrijs2005/sanposhin/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, item models.SyncQueueItem) (int64, error) {
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return 0, fmt.Errorf("encode queue payload: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue (kind, user_id, client_id, payload, enqueued_at)
		VALUES (?, ?, ?, ?, ?)
	`, item.Kind, item.UserID, item.Payload.ClientID, string(payload), item.EnqueuedAt)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.LastInsertId()
}

// List returns the user's deliverable items in enqueue order. Parked items
// are left out.
func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]models.SyncQueueItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, user_id, payload, enqueued_at, attempts, last_error
		FROM sync_queue
		WHERE user_id = ? AND parked = 0
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	items, err := dbx.Collect(rows, func(rows *sql.Rows) (models.SyncQueueItem, error) {
		var (
			it        models.SyncQueueItem
			payload   string
			lastError sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.Kind, &it.UserID, &payload, &it.EnqueuedAt, &it.Attempts, &lastError); err != nil {
			return it, err
		}
		if err := json.Unmarshal([]byte(payload), &it.Payload); err != nil {
			return it, fmt.Errorf("decode queue payload %d: %w", it.ID, err)
		}
		it.LastError = lastError.String
		return it, nil
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByClientID withdraws pending writes of one entry.
func (r *SQLiteRepository) DeleteByClientID(ctx context.Context, userID, clientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE user_id = ? AND client_id = ?`, userID, clientID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET attempts = attempts + 1, last_error = ? WHERE id = ?
	`, reason, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Park takes an item out of delivery for good. It stays visible to
// CountParked until it is withdrawn or cleared.
func (r *SQLiteRepository) Park(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET attempts = attempts + 1, last_error = ?, parked = 1 WHERE id = ?
	`, reason, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, userID, false)
}

func (r *SQLiteRepository) CountParked(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, userID, true)
}

func (r *SQLiteRepository) count(ctx context.Context, userID string, parked bool) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue WHERE user_id = ? AND parked = ?`, userID, parked).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Oldest reports the enqueue time (epoch ms) of the user's oldest
// deliverable item.
func (r *SQLiteRepository) Oldest(ctx context.Context, userID string) (int64, bool, error) {
	var ts sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MIN(enqueued_at) FROM sync_queue WHERE user_id = ? AND parked = 0`, userID).Scan(&ts)
	if err != nil {
		return 0, false, fmt.Errorf("db error: %w", err)
	}
	return ts.Int64, ts.Valid, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
