package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func newLimiter(p Policy) (*Limiter, *MemoryStore) {
	s := NewMemoryStore()
	return New(p, s, logging.Nop()), s
}

func TestCheckLimit_NoState(t *testing.T) {
	l, _ := newLimiter(LoginPolicy)
	d := l.CheckLimit(context.Background(), "1.2.3.4:taro", t0)
	assert.True(t, d.Allowed)
	assert.True(t, d.RetryAt.IsZero())
}

func TestLoginPolicy_LockAfterFiveFailures(t *testing.T) {
	ctx := context.Background()
	l, _ := newLimiter(LoginPolicy)
	id := "1.2.3.4:taro"

	var fifth time.Time
	for i := 0; i < 5; i++ {
		now := t0.Add(time.Duration(i) * time.Minute)
		require.True(t, l.CheckLimit(ctx, id, now).Allowed, "attempt %d", i+1)
		l.RegisterFailure(ctx, id, now)
		fifth = now
	}

	wantRetry := fifth.Add(15 * time.Minute)
	d := l.CheckLimit(ctx, id, fifth.Add(time.Second))
	assert.False(t, d.Allowed)
	assert.True(t, wantRetry.Equal(d.RetryAt), "retryAt %v, want %v", d.RetryAt, wantRetry)

	d6 := l.CheckLimit(ctx, id, wantRetry.Add(-time.Millisecond))
	assert.False(t, d6.Allowed)
	assert.True(t, wantRetry.Equal(d6.RetryAt))

	after := l.CheckLimit(ctx, id, wantRetry)
	assert.True(t, after.Allowed)

	// Lock cleared: a single new failure does not relock.
	l.RegisterFailure(ctx, id, wantRetry)
	assert.True(t, l.CheckLimit(ctx, id, wantRetry.Add(time.Second)).Allowed)
}

func TestLoginPolicy_FailuresSameInstant(t *testing.T) {
	ctx := context.Background()
	l, s := newLimiter(LoginPolicy)
	for i := 0; i < 5; i++ {
		l.RegisterFailure(ctx, "k", t0)
	}
	st, ok, err := s.Get(ctx, "login:k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, st.Count)
	assert.Equal(t, t0.Add(15*time.Minute).UnixMilli(), st.LockUntil)

	assert.True(t, l.CheckLimit(ctx, "k", t0.Add(15*time.Minute)).Allowed)
	_, ok, _ = s.Get(ctx, "login:k")
	assert.False(t, ok, "elapsed lock must be cleared")
}

func TestRegisterFailure_WindowExpiryRestartsCount(t *testing.T) {
	ctx := context.Background()
	l, s := newLimiter(LoginPolicy)

	for i := 0; i < 4; i++ {
		l.RegisterFailure(ctx, "k", t0)
	}
	later := t0.Add(15*time.Minute + time.Millisecond)
	l.RegisterFailure(ctx, "k", later)

	st, _, _ := s.Get(ctx, "login:k")
	assert.Equal(t, State{Count: 1, WindowStart: later.UnixMilli()}, st)
	assert.True(t, l.CheckLimit(ctx, "k", later).Allowed)
}

func TestCheckLimit_WindowBoundaryIsExclusive(t *testing.T) {
	ctx := context.Background()
	l, s := newLimiter(SignupPolicy)
	for i := 0; i < 10; i++ {
		l.RegisterAttempt(ctx, "ip", t0)
	}
	// now - windowStart == window: still inside.
	assert.False(t, l.CheckLimit(ctx, "ip", t0.Add(time.Hour)).Allowed)
	assert.True(t, l.CheckLimit(ctx, "ip", t0.Add(time.Hour+time.Millisecond)).Allowed)
	assert.Zero(t, s.Len())
}

func TestSignupPolicy_DenyWhileAtMax(t *testing.T) {
	ctx := context.Background()
	l, s := newLimiter(SignupPolicy)

	for i := 1; i <= 10; i++ {
		require.True(t, l.CheckLimit(ctx, "10.0.0.1", t0).Allowed, "attempt %d", i)
		l.RegisterAttempt(ctx, "10.0.0.1", t0)
	}
	for i := 11; i <= 15; i++ {
		d := l.CheckLimit(ctx, "10.0.0.1", t0.Add(time.Minute))
		assert.False(t, d.Allowed, "attempt %d", i)
		assert.True(t, t0.Add(time.Hour).Equal(d.RetryAt))
	}

	st, _, _ := s.Get(ctx, "signup:10.0.0.1")
	assert.Zero(t, st.LockUntil, "signup never sets a lock")

	assert.True(t, l.CheckLimit(ctx, "10.0.0.2", t0.Add(time.Minute)).Allowed)
}

func TestResetOnSuccess(t *testing.T) {
	ctx := context.Background()
	l, s := newLimiter(LoginPolicy)
	for i := 0; i < 5; i++ {
		l.RegisterFailure(ctx, "k", t0)
	}
	require.False(t, l.CheckLimit(ctx, "k", t0).Allowed)

	l.ResetOnSuccess(ctx, "k")
	assert.Zero(t, s.Len())
	assert.True(t, l.CheckLimit(ctx, "k", t0).Allowed)
}

func TestPoliciesAreIsolatedInSharedStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	login := New(LoginPolicy, s, logging.Nop())
	restore := New(RestorePolicy, s, logging.Nop())

	for i := 0; i < 3; i++ {
		restore.RegisterFailure(ctx, "taro", t0)
	}
	assert.False(t, restore.CheckLimit(ctx, "taro", t0).Allowed)
	assert.True(t, login.CheckLimit(ctx, "taro", t0).Allowed)
	assert.True(t, t0.Add(time.Hour).Equal(restore.CheckLimit(ctx, "taro", t0).RetryAt))
}

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) (State, bool, error) {
	return State{}, false, f.err
}
func (f failingStore) Set(context.Context, string, State) error { return f.err }
func (f failingStore) Delete(context.Context, string) error     { return f.err }

func TestStoreErrorsFailOpen(t *testing.T) {
	ctx := context.Background()
	l := New(LoginPolicy, failingStore{err: errors.New("db down")}, logging.Nop())
	for i := 0; i < 10; i++ {
		l.RegisterFailure(ctx, "k", t0)
	}
	assert.True(t, l.CheckLimit(ctx, "k", t0).Allowed)
	l.ResetOnSuccess(ctx, "k")
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	require.NoError(t, s.Set(ctx, "stale", State{Count: 1, WindowStart: now.Add(-3 * time.Hour).UnixMilli()}))
	require.NoError(t, s.Set(ctx, "fresh", State{Count: 1, WindowStart: now.UnixMilli()}))
	require.NoError(t, s.Set(ctx, "locked", State{Count: 5, WindowStart: now.Add(-3 * time.Hour).UnixMilli(), LockUntil: now.Add(time.Hour).UnixMilli()}))

	assert.Equal(t, 1, s.Sweep(now.Add(-2*time.Hour)))
	_, ok, _ := s.Get(ctx, "fresh")
	assert.True(t, ok)
	_, ok, _ = s.Get(ctx, "locked")
	assert.True(t, ok)
}

func TestMemoryStore_RunCleanupStopsOnCancel(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunCleanup(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not stop")
	}
}

func TestLimiter_ConcurrentFailuresCountExactly(t *testing.T) {
	ctx := context.Background()
	l, s := newLimiter(SavePolicy)

	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func(i int) {
			l.RegisterAttempt(ctx, fmt.Sprintf("user%d", i%5), t0)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 50; i++ {
		<-done
	}
	for i := 0; i < 5; i++ {
		st, ok, _ := s.Get(ctx, fmt.Sprintf("log_save:user%d", i))
		require.True(t, ok)
		assert.Equal(t, 10, st.Count)
	}
}
