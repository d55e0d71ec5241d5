package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps state in a process-local map.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[key]
	return st, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = st
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// Sweep drops entries whose window started before cutoff and whose lock,
// if any, has already expired. It returns the number removed.
func (m *MemoryStore) Sweep(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := cutoff.UnixMilli()
	now := time.Now().UnixMilli()
	n := 0
	for k, st := range m.states {
		if st.WindowStart < c && st.LockUntil <= now {
			delete(m.states, k)
			n++
		}
	}
	return n
}

// RunCleanup sweeps every interval, dropping entries older than maxAge,
// until ctx is cancelled.
func (m *MemoryStore) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(time.Now().Add(-maxAge))
		}
	}
}
