package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/dbx"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// nullable turns a nil pointer into SQL NULL so COALESCE keeps the column.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {
	query :=
		`INSERT INTO users (user_id, password_hash, created_at, last_login_at, total_adventures)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	_, err := r.db.ExecContext(ctx, query,
		user.UserID, user.PasswordHash, user.CreatedAt, nullable(user.LastLoginAt), user.TotalAdventures)

	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.User, error) {
	query :=
		`SELECT user_id, password_hash, created_at, last_login_at, total_adventures FROM users
		 WHERE user_id = $1
		 `

	user := &models.User{}
	var lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&user.UserID, &user.PasswordHash, &user.CreatedAt, &lastLogin, &user.TotalAdventures)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}

	return user, nil
}

// SetFields merges the non-nil fields into the stored row in one statement.
func (r *PostgresRepository) SetFields(ctx context.Context, userID string, fields models.UserFields) error {
	query :=
		`UPDATE users SET
		   password_hash = COALESCE($2, password_hash),
		   last_login_at = COALESCE($3, last_login_at),
		   total_adventures = COALESCE($4, total_adventures)
		 WHERE user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID,
		nullable(fields.PasswordHash), nullable(fields.LastLoginAt), nullable(fields.TotalAdventures))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) IncrementAdventures(ctx context.Context, userID string) (int64, error) {
	query :=
		`UPDATE users SET total_adventures = total_adventures + 1
		 WHERE user_id = $1
		 RETURNING total_adventures
		 `

	var total int64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&total)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return total, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE user_id = $1`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
