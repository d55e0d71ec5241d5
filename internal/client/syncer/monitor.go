// Package syncer moves queued writes to the remote store. A Monitor tracks
// connectivity; an Engine drains the queue when the remote is reachable.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/logging"
)

const (
	DefaultCheckInterval = 10 * time.Second
	DefaultPingTimeout   = 3 * time.Second
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor pings a Pinger and reports online/offline transitions to its
// subscribers. It starts offline, so the first successful ping counts as a
// reconnect.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   logging.Logger

	mu     sync.Mutex
	online bool
	subs   map[int]func(online bool)
	nextID int
}

func NewMonitor(pinger Pinger, interval time.Duration, logger logging.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Monitor{
		pinger:   pinger,
		interval: interval,
		timeout:  DefaultPingTimeout,
		logger:   logger.With("module", "monitor"),
		subs:     make(map[int]func(bool)),
	}
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers fn for state changes. Calling the returned function
// more than once is harmless.
func (m *Monitor) Subscribe(fn func(online bool)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Check runs one ping and returns the resulting state.
func (m *Monitor) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(pctx)
	cancel()

	m.setOnline(ctx, err == nil, err)
	return err == nil
}

func (m *Monitor) setOnline(ctx context.Context, online bool, cause error) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if online {
		m.logger.Info(ctx, "switched to online mode")
	} else {
		m.logger.Warn(ctx, "switched to offline mode", "error", cause)
	}
	for _, fn := range subs {
		fn(online)
	}
}

// Run pings immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
