// Package ratelimit implements a per-identity fixed-window limiter with an
// optional lockout. State lives behind a Store so a single process can keep
// it in memory while a fleet shares it through a database.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/logging"
)

// Policy configures one limited endpoint.
//
// With Lock > 0 the identity is locked for Lock once MaxAttempts failures
// accumulate inside Window. With Lock == 0 the identity is denied while its
// count is at or above MaxAttempts, until the window expires.
type Policy struct {
	Name        string
	MaxAttempts int
	Window      time.Duration
	Lock        time.Duration
}

var (
	LoginPolicy   = Policy{Name: "login", MaxAttempts: 5, Window: 15 * time.Minute, Lock: 15 * time.Minute}
	SignupPolicy  = Policy{Name: "signup", MaxAttempts: 10, Window: 60 * time.Minute}
	SavePolicy    = Policy{Name: "log_save", MaxAttempts: 100, Window: 60 * time.Minute}
	RestorePolicy = Policy{Name: "restore", MaxAttempts: 3, Window: 60 * time.Minute, Lock: 60 * time.Minute}
)

// State is the persisted record for one identity. Times are epoch ms.
type State struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"windowStart"`
	LockUntil   int64 `json:"lockUntil,omitempty"`
}

// Decision is the outcome of CheckLimit. RetryAt is zero when allowed.
type Decision struct {
	Allowed bool
	RetryAt time.Time
}

// Store persists State by identity key. Get reports ok=false when absent.
type Store interface {
	Get(ctx context.Context, key string) (State, bool, error)
	Set(ctx context.Context, key string, st State) error
	Delete(ctx context.Context, key string) error
}

// Limiter applies one Policy over a Store.
type Limiter struct {
	policy Policy
	store  Store
	logger logging.Logger
	mu     sync.Mutex
}

func New(policy Policy, store Store, logger logging.Logger) *Limiter {
	return &Limiter{
		policy: policy,
		store:  store,
		logger: logger.With("module", "ratelimit", "policy", policy.Name),
	}
}

func (l *Limiter) Policy() Policy { return l.policy }

func (l *Limiter) key(identity string) string {
	return l.policy.Name + ":" + identity
}

func (l *Limiter) expired(st State, now int64) bool {
	return now-st.WindowStart > l.policy.Window.Milliseconds()
}

// CheckLimit reports whether identity may attempt at now. Store failures
// fail open.
func (l *Limiter) CheckLimit(ctx context.Context, identity string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := l.key(identity)
	st, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Error(ctx, "rate limit state read failed", "identity", identity, "error", err)
		return Decision{Allowed: true}
	}
	if !ok {
		return Decision{Allowed: true}
	}

	ms := now.UnixMilli()
	if st.LockUntil != 0 && ms < st.LockUntil {
		deniedTotal.WithLabelValues(l.policy.Name).Inc()
		return Decision{Allowed: false, RetryAt: time.UnixMilli(st.LockUntil)}
	}
	// An elapsed lock or window starts the identity over.
	if st.LockUntil != 0 || l.expired(st, ms) {
		if err := l.store.Delete(ctx, key); err != nil {
			l.logger.Warn(ctx, "rate limit state delete failed", "identity", identity, "error", err)
		}
		return Decision{Allowed: true}
	}
	if l.policy.Lock == 0 && st.Count >= l.policy.MaxAttempts {
		deniedTotal.WithLabelValues(l.policy.Name).Inc()
		return Decision{Allowed: false, RetryAt: time.UnixMilli(st.WindowStart + l.policy.Window.Milliseconds())}
	}
	return Decision{Allowed: true}
}

// RegisterFailure counts a failed attempt and locks the identity once the
// policy maximum is reached.
func (l *Limiter) RegisterFailure(ctx context.Context, identity string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := l.key(identity)
	ms := now.UnixMilli()

	st, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Error(ctx, "rate limit state read failed", "identity", identity, "error", err)
		return
	}

	switch {
	case !ok || l.expired(st, ms) || (st.LockUntil != 0 && ms >= st.LockUntil):
		st = State{Count: 1, WindowStart: ms}
	default:
		st.Count++
	}

	if l.policy.Lock > 0 && st.Count >= l.policy.MaxAttempts {
		st.Count = l.policy.MaxAttempts
		st.LockUntil = ms + l.policy.Lock.Milliseconds()
		l.logger.Warn(ctx, "identity locked", "identity", identity, "lock_until", time.UnixMilli(st.LockUntil).UTC())
	}

	if err := l.store.Set(ctx, key, st); err != nil {
		l.logger.Error(ctx, "rate limit state write failed", "identity", identity, "error", err)
	}
}

// RegisterAttempt counts an attempt regardless of its outcome. Endpoints
// that throttle volume rather than failures call it before doing the work.
func (l *Limiter) RegisterAttempt(ctx context.Context, identity string, now time.Time) {
	l.RegisterFailure(ctx, identity, now)
}

// ResetOnSuccess forgets all state for identity.
func (l *Limiter) ResetOnSuccess(ctx context.Context, identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(ctx, l.key(identity)); err != nil {
		l.logger.Error(ctx, "rate limit state delete failed", "identity", identity, "error", err)
	}
}
