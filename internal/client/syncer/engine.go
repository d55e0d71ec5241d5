package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/client/queue"
	"github.com/dmitrijs2005/sanposhin/internal/client/repositories/logs"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
)

// Remote persists one entry remotely and returns it as stored, with its
// remote id set.
type Remote interface {
	CreateLog(ctx context.Context, entry models.LogEntry) (models.LogEntry, error)
}

type Connectivity interface {
	Online() bool
	Subscribe(fn func(online bool)) (cancel func())
}

// Status is the user-facing view of pending work.
type Status struct {
	Pending int        `json:"pending"`
	Parked  int        `json:"parked"`
	Oldest  *time.Time `json:"oldest,omitempty"`
	Online  bool       `json:"online"`
}

type Engine struct {
	queue   *queue.Queue
	logs    logs.Repository
	remote  Remote
	monitor Connectivity
	logger  logging.Logger

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

func NewEngine(q *queue.Queue, logsRepo logs.Repository, remote Remote, monitor Connectivity, logger logging.Logger) *Engine {
	return &Engine{
		queue:    q,
		logs:     logsRepo,
		remote:   remote,
		monitor:  monitor,
		logger:   logger.With("module", "syncer"),
		inflight: make(map[string]bool),
	}
}

func (e *Engine) acquire(userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[userID] {
		return false
	}
	e.inflight[userID] = true
	return true
}

func (e *Engine) release(userID string) {
	e.mu.Lock()
	delete(e.inflight, userID)
	e.mu.Unlock()
}

// SyncNow drains the user's queue into the remote store. It does nothing
// while offline or while another drain for the same user is running.
func (e *Engine) SyncNow(ctx context.Context, userID string) (queue.Result, error) {
	if !e.monitor.Online() {
		return queue.Result{Skipped: true}, nil
	}
	if !e.acquire(userID) {
		e.logger.Debug(ctx, "sync already in flight", "user_id", userID)
		return queue.Result{Skipped: true}, nil
	}
	defer e.release(userID)

	return e.queue.Drain(ctx, userID, e.deliver)
}

func (e *Engine) deliver(ctx context.Context, item queue.Item) error {
	if item.Kind != models.QueueKindLog {
		return common.InvalidInput("unknown queue item kind %q", item.Kind)
	}

	saved, err := e.remote.CreateLog(ctx, item.Payload)
	if err != nil {
		return err
	}

	if saved.ClientID == "" {
		saved.ClientID = item.Payload.ClientID
	}
	if err := e.logs.Upsert(ctx, saved); err != nil {
		// The remote write stands; the cache catches up on the next list.
		e.logger.Warn(ctx, "cache update after sync failed", "client_id", saved.ClientID, "error", err)
	}
	return nil
}

// SetupAutoSync runs one SyncNow for every offline to online transition
// until the returned cancel is called. Drains already running are left to
// finish.
func (e *Engine) SetupAutoSync(ctx context.Context, userID string) (cancel func()) {
	return e.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			res, err := e.SyncNow(ctx, userID)
			if err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error(ctx, "auto sync failed", "user_id", userID, "error", err)
				return
			}
			if !res.Skipped {
				e.logger.Info(ctx, "auto sync finished", "user_id", userID, "success", res.Success, "failed", res.Failed)
			}
		}()
	})
}

// Wait blocks until auto-sync drains started so far have returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) Status(ctx context.Context, userID string) (Status, error) {
	if userID == "" {
		return Status{}, common.InvalidInput("userId is required")
	}
	n, err := e.queue.Len(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	parked, err := e.queue.Parked(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	st := Status{Pending: n, Parked: parked, Online: e.monitor.Online()}

	oldest, ok, err := e.queue.Oldest(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if ok {
		st.Oldest = &oldest
	}
	return st, nil
}
