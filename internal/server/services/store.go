package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/sanposhin/internal/dbx"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/dmitrijs2005/sanposhin/internal/server/repositories/repomanager"
)

// Store is the authoritative remote log store. It composes the user and
// log repositories and owns the transaction that couples a log insert with
// the adventure counter.
type Store struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewStore(db *sql.DB, rm repomanager.RepositoryManager) *Store {
	return &Store{db: db, repomanager: rm}
}

// CreateLog persists entry for userID and returns its id. Completed entries
// bump the user's adventure counter in the same transaction. A retried
// write carrying a known client id returns the existing id and leaves the
// counter alone.
func (s *Store) CreateLog(ctx context.Context, userID string, entry models.LogEntry) (string, error) {
	entry.UserID = userID
	entry.ID = ""

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Logs(tx).Create(ctx, &entry)
		if err != nil {
			return err
		}
		if !created || entry.Status != models.StatusCompleted {
			return nil
		}
		_, err = s.repomanager.Users(tx).IncrementAdventures(ctx, userID)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("error creating log: %w", err)
	}

	return entry.ID, nil
}

func (s *Store) ListLogs(ctx context.Context, userID string) ([]models.LogEntry, error) {
	return s.repomanager.Logs(s.db).List(ctx, userID)
}

func (s *Store) DeleteLog(ctx context.Context, userID, id string) error {
	return s.repomanager.Logs(s.db).Delete(ctx, userID, id)
}

func (s *Store) DeleteAllLogs(ctx context.Context, userID string) (int64, error) {
	return s.repomanager.Logs(s.db).DeleteAll(ctx, userID)
}

func (s *Store) CountLogs(ctx context.Context, userID string) (int64, error) {
	return s.repomanager.Logs(s.db).Count(ctx, userID)
}

func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).Get(ctx, userID)
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.repomanager.Users(s.db).Create(ctx, user)
}

func (s *Store) SetUserFields(ctx context.Context, userID string, fields models.UserFields) error {
	return s.repomanager.Users(s.db).SetFields(ctx, userID, fields)
}

func (s *Store) IncrementAdventures(ctx context.Context, userID string) (int64, error) {
	return s.repomanager.Users(s.db).IncrementAdventures(ctx, userID)
}

// DeleteUser removes the user. Logs go with it through the foreign key.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	return s.repomanager.Users(s.db).Delete(ctx, userID)
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
