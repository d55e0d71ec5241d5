package logs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/dbx"
	"github.com/dmitrijs2005/sanposhin/internal/models"
)

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or
// *sql.Tx). The full entry is stored as JSON in payload; the other columns
// exist for lookup and ordering.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// cacheKey is the primary key of an entry: its client id, or its remote id
// for entries created elsewhere without one.
func cacheKey(e models.LogEntry) string {
	if e.ClientID != "" {
		return e.ClientID
	}
	return e.ID
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *SQLiteRepository) Upsert(ctx context.Context, e models.LogEntry) error {
	return upsert(ctx, r.db, e)
}

func upsert(ctx context.Context, db dbx.DBTX, e models.LogEntry) error {
	key := cacheKey(e)
	if key == "" {
		return common.InvalidInput("log entry has neither clientId nor id")
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO logs (client_id, user_id, remote_id, created_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			user_id = excluded.user_id,
			remote_id = COALESCE(excluded.remote_id, logs.remote_id),
			created_at = excluded.created_at,
			payload = excluded.payload
	`, key, e.UserID, nullable(e.ID), e.CreatedAt, string(payload))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanEntry(sc interface{ Scan(...any) error }) (models.LogEntry, error) {
	var payload string
	var remoteID sql.NullString
	if err := sc.Scan(&remoteID, &payload); err != nil {
		return models.LogEntry{}, err
	}
	var e models.LogEntry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return models.LogEntry{}, fmt.Errorf("decode cached log entry: %w", err)
	}
	if remoteID.Valid {
		e.ID = remoteID.String
	}
	return e, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, clientID string) (*models.LogEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT remote_id, payload FROM logs WHERE client_id = ?`, clientID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &e, nil
}

// List returns the user's cached entries, newest first.
func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]models.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT remote_id, payload FROM logs
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	out, err := dbx.Collect(rows, func(rows *sql.Rows) (models.LogEntry, error) {
		return scanEntry(rows)
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if out == nil {
		out = []models.LogEntry{}
	}
	return out, nil
}

// ReplaceRemote refreshes the cache with a fresh remote listing. Confirmed
// entries are replaced wholesale; unconfirmed local entries are kept so
// pending saves stay visible.
func (r *SQLiteRepository) ReplaceRemote(ctx context.Context, userID string, entries []models.LogEntry) error {
	fn := func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM logs WHERE user_id = ? AND remote_id IS NOT NULL`, userID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		for _, e := range entries {
			if err := upsert(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	}

	if b, ok := r.db.(dbx.TxBeginner); ok {
		return dbx.WithTx(ctx, b, nil, fn)
	}
	return fn(ctx, r.db)
}

func (r *SQLiteRepository) DeleteByRemoteID(ctx context.Context, userID, remoteID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM logs WHERE user_id = ? AND remote_id = ?`, userID, remoteID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteLocal(ctx context.Context, clientID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM logs WHERE client_id = ?`, clientID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM logs WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
