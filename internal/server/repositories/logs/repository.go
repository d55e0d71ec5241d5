package logs

import (
	"context"

	"github.com/dmitrijs2005/sanposhin/internal/models"
)

type Repository interface {
	// Create inserts entry and sets entry.ID. With a ClientID that is
	// already stored for the user, it sets the existing id and reports
	// created=false.
	Create(ctx context.Context, entry *models.LogEntry) (created bool, err error)
	List(ctx context.Context, userID string) ([]models.LogEntry, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
	Count(ctx context.Context, userID string) (int64, error)
}
