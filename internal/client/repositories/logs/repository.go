// Package logs is the device-local log cache. Entries are keyed by their
// client id; a non-empty remote id means the remote store has confirmed
// the entry.
package logs

import (
	"context"

	"github.com/dmitrijs2005/sanposhin/internal/models"
)

type Repository interface {
	Upsert(ctx context.Context, entry models.LogEntry) error
	Get(ctx context.Context, clientID string) (*models.LogEntry, error)
	List(ctx context.Context, userID string) ([]models.LogEntry, error)
	ReplaceRemote(ctx context.Context, userID string, entries []models.LogEntry) error
	DeleteByRemoteID(ctx context.Context, userID, remoteID string) error
	DeleteLocal(ctx context.Context, clientID string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}
