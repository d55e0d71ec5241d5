// Package queue persists pending remote writes in the sync_queue table.
package queue

import (
	"context"

	"github.com/dmitrijs2005/sanposhin/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, item models.SyncQueueItem) (int64, error)
	List(ctx context.Context, userID string) ([]models.SyncQueueItem, error)
	Delete(ctx context.Context, id int64) error
	DeleteByClientID(ctx context.Context, userID, clientID string) (int64, error)
	MarkFailed(ctx context.Context, id int64, reason string) error
	Park(ctx context.Context, id int64, reason string) error
	Count(ctx context.Context, userID string) (int, error)
	CountParked(ctx context.Context, userID string) (int, error)
	Oldest(ctx context.Context, userID string) (int64, bool, error)
	Clear(ctx context.Context, userID string) (int64, error)
}
