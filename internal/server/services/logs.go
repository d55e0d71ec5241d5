package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/auth"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/dmitrijs2005/sanposhin/internal/ratelimit"
	"github.com/google/uuid"
)

type LogService struct {
	store   *Store
	limiter *ratelimit.Limiter
	logger  logging.Logger
	now     func() time.Time
}

func NewLogService(store *Store, limiter *ratelimit.Limiter, logger logging.Logger) *LogService {
	return &LogService{
		store:   store,
		limiter: limiter,
		logger:  logger.With("module", "logs"),
		now:     time.Now,
	}
}

// Save validates and stores entry and returns the remote id. Every call
// counts against the per-user save policy.
func (s *LogService) Save(ctx context.Context, entry models.LogEntry) (string, error) {
	if err := auth.PrepareLogEntry(&entry, s.now()); err != nil {
		return "", err
	}

	now := s.now()
	if d := s.limiter.CheckLimit(ctx, entry.UserID, now); !d.Allowed {
		return "", denied(d)
	}
	s.limiter.RegisterAttempt(ctx, entry.UserID, now)

	id, err := s.store.CreateLog(ctx, entry.UserID, entry)
	if err != nil {
		return "", err
	}

	s.logger.Debug(ctx, "log saved", "user_id", entry.UserID, "log_id", id, "status", entry.Status)
	return id, nil
}

func (s *LogService) List(ctx context.Context, userID string) ([]models.LogEntry, error) {
	logs, err := s.store.ListLogs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing logs: %w", err)
	}
	if logs == nil {
		logs = []models.LogEntry{}
	}
	return logs, nil
}

func (s *LogService) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.InvalidInput("log id must be a UUID")
	}
	return s.store.DeleteLog(ctx, userID, id)
}

func (s *LogService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.DeleteAllLogs(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error deleting logs: %w", err)
	}
	s.logger.Info(ctx, "logs deleted", "user_id", userID, "count", n)
	return n, nil
}
