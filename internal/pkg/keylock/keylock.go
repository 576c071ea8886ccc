// Package keylock provides per-key mutual exclusion with a bounded wait.
package keylock

import (
	"context"
	"sync"
	"time"

	"hotelrides/internal/domain"
)

// Locker serializes critical sections by key. Release must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type entry struct {
	token chan struct{}
	refs  int
}

// Memory is a process-local Locker. Entries are reference counted and
// removed once nobody holds or waits on the key.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	wait    time.Duration
}

func NewMemory(wait time.Duration) *Memory {
	return &Memory{entries: make(map[string]*entry), wait: wait}
}

func (m *Memory) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{token: make(chan struct{}, 1)}
		e.token <- struct{}{}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	if m.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.wait)
		defer cancel()
	}

	select {
	case <-e.token:
		var once sync.Once
		return func() {
			once.Do(func() {
				e.token <- struct{}{}
				m.unref(key, e)
			})
		}, nil
	case <-ctx.Done():
		m.unref(key, e)
		return nil, domain.ErrLockTimeout
	}
}

func (m *Memory) unref(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
