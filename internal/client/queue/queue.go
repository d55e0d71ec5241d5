// Package queue is the client's durable outbox. Writes that could not
// reach the remote store wait here, in enqueue order, until a drain
// delivers them. Delivery is at-least-once.
package queue

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	queuerepo "github.com/dmitrijs2005/sanposhin/internal/client/repositories/queue"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
)

type Item = models.SyncQueueItem

// Handler delivers one item. A nil return removes the item.
type Handler func(ctx context.Context, item Item) error

// Result counts what a drain did. Skipped is set by callers that decline to
// drain at all.
type Result struct {
	Success int  `json:"success"`
	Failed  int  `json:"failed"`
	Parked  int  `json:"parked,omitempty"`
	Skipped bool `json:"skipped,omitempty"`
}

type Queue struct {
	repo   queuerepo.Repository
	logger logging.Logger
	now    func() time.Time
}

func New(repo queuerepo.Repository, logger logging.Logger) *Queue {
	return &Queue{
		repo:   repo,
		logger: logger.With("module", "queue"),
		now:    time.Now,
	}
}

// Enqueue appends a pending log save for entry.UserID.
func (q *Queue) Enqueue(ctx context.Context, entry models.LogEntry) (Item, error) {
	it := Item{
		Kind:       models.QueueKindLog,
		UserID:     entry.UserID,
		Payload:    entry,
		EnqueuedAt: q.now().UnixMilli(),
	}
	id, err := q.repo.Insert(ctx, it)
	if err != nil {
		return Item{}, fmt.Errorf("enqueue: %w", err)
	}
	it.ID = id
	q.logger.Debug(ctx, "enqueued", "user_id", it.UserID, "item_id", id, "client_id", entry.ClientID)
	return it, nil
}

// PeekAll returns a snapshot of the user's items taken at call time. The
// sequence can be ranged any number of times and never removes anything.
func (q *Queue) PeekAll(ctx context.Context, userID string) (iter.Seq[Item], error) {
	items, err := q.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("peek: %w", err)
	}
	return func(yield func(Item) bool) {
		for _, it := range items {
			if !yield(it) {
				return
			}
		}
	}, nil
}

// Drain hands every item to handler in enqueue order. Items the handler
// accepts are removed one at a time; failed items stay in place with their
// attempt count bumped. An item rejected as invalid input would fail the
// same way every time, so it is parked instead: kept for the user to see
// but never handed out again. Only cancellation or a storage failure ends
// the drain early, and the returned counts cover what was processed.
func (q *Queue) Drain(ctx context.Context, userID string, handler Handler) (Result, error) {
	var res Result

	items, err := q.repo.List(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("drain: %w", err)
	}

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if herr := handler(ctx, it); herr != nil {
			if errors.Is(herr, common.ErrInvalidInput) {
				res.Parked++
				q.logger.Warn(ctx, "queued item parked", "user_id", userID, "item_id", it.ID, "error", herr)
				if err := q.repo.Park(ctx, it.ID, herr.Error()); err != nil {
					return res, fmt.Errorf("drain: %w", err)
				}
				continue
			}
			res.Failed++
			q.logger.Warn(ctx, "queued item failed", "user_id", userID, "item_id", it.ID, "attempts", it.Attempts+1, "error", herr)
			if err := q.repo.MarkFailed(ctx, it.ID, herr.Error()); err != nil {
				return res, fmt.Errorf("drain: %w", err)
			}
			continue
		}

		if err := q.repo.Delete(ctx, it.ID); err != nil {
			return res, fmt.Errorf("drain: %w", err)
		}
		res.Success++
	}

	if res.Success+res.Failed+res.Parked > 0 {
		q.logger.Info(ctx, "queue drained", "user_id", userID, "success", res.Success, "failed", res.Failed, "parked", res.Parked)
	}
	return res, nil
}

// Remove withdraws the pending writes of one entry, for example after the
// user deleted it before it was ever synced.
func (q *Queue) Remove(ctx context.Context, userID, clientID string) error {
	n, err := q.repo.DeleteByClientID(ctx, userID, clientID)
	if err != nil {
		return err
	}
	if n > 0 {
		q.logger.Debug(ctx, "queued item withdrawn", "user_id", userID, "client_id", clientID)
	}
	return nil
}

// Len counts items still waiting for delivery.
func (q *Queue) Len(ctx context.Context, userID string) (int, error) {
	return q.repo.Count(ctx, userID)
}

// Parked counts items the remote store refused for good.
func (q *Queue) Parked(ctx context.Context, userID string) (int, error) {
	return q.repo.CountParked(ctx, userID)
}

// Oldest returns the enqueue time of the user's oldest pending item.
func (q *Queue) Oldest(ctx context.Context, userID string) (time.Time, bool, error) {
	ms, ok, err := q.repo.Oldest(ctx, userID)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

func (q *Queue) Clear(ctx context.Context, userID string) error {
	n, err := q.repo.Clear(ctx, userID)
	if err != nil {
		return err
	}
	if n > 0 {
		q.logger.Info(ctx, "queue cleared", "user_id", userID, "removed", n)
	}
	return nil
}
