// Package logs provides the PostgreSQL-backed store of users' log entries.
package logs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/dbx"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/google/uuid"
)

// PostgresRepository implements log storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Create inserts entry under a fresh id. Rows without a client id never
// conflict, so only a retried client write can hit the DO NOTHING branch.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.LogEntry) (bool, error) {
	query := `
		INSERT INTO logs (id, user_id, client_id, mission_id, mission_text, image_url, image_data,
			location_name, memo, is_public, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, client_id) WHERE client_id IS NOT NULL DO NOTHING
	`
	var location string
	if entry.Location != nil {
		location = entry.Location.Name
	}

	id := uuid.NewString()
	res, err := r.db.ExecContext(ctx, query,
		id, entry.UserID, nullString(entry.ClientID), entry.MissionID, entry.MissionText,
		nullString(entry.ImageURL), nullString(entry.ImageData), nullString(location),
		nullString(entry.Memo), entry.IsPublic, string(entry.Status), entry.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	if n == 1 {
		entry.ID = id
		return true, nil
	}

	existing, err := r.findByClientID(ctx, entry.UserID, entry.ClientID)
	if err != nil {
		return false, err
	}
	entry.ID = existing
	return false, nil
}

func (r *PostgresRepository) findByClientID(ctx context.Context, userID, clientID string) (string, error) {
	query := `SELECT id FROM logs WHERE user_id = $1 AND client_id = $2`

	var id string
	if err := r.db.QueryRowContext(ctx, query, userID, clientID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// List returns every entry of userID, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID string) ([]models.LogEntry, error) {
	query := `
		SELECT id, COALESCE(client_id, ''), user_id, mission_id, mission_text, COALESCE(image_url, ''),
			COALESCE(image_data, ''), COALESCE(location_name, ''), COALESCE(memo, ''), is_public, status, created_at
		FROM logs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select logs: %w", err)
	}

	result, err := dbx.Collect(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to read logs: %w", err)
	}
	return result, nil
}

func scanEntry(rows *sql.Rows) (models.LogEntry, error) {
	var (
		e        models.LogEntry
		location string
		status   string
	)
	if err := rows.Scan(&e.ID, &e.ClientID, &e.UserID, &e.MissionID, &e.MissionText, &e.ImageURL,
		&e.ImageData, &location, &e.Memo, &e.IsPublic, &status, &e.CreatedAt); err != nil {
		return e, err
	}
	if location != "" {
		e.Location = &models.Location{Name: location}
	}
	e.Status = models.ParseStatus(status)
	return e, nil
}

// Delete removes one entry owned by userID.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM logs WHERE user_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteAll removes every entry of userID and reports how many went.
func (r *PostgresRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM logs WHERE user_id = $1`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Count(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COUNT(*) FROM logs WHERE user_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
