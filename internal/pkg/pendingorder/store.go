// Package pendingorder holds pay-first order data between checkout and the
// gateway's payment notification.
package pendingorder

import (
	"context"
	"time"

	"hotelrides/internal/domain"

	"github.com/patrickmn/go-cache"
)

type Store interface {
	Put(ctx context.Context, o *domain.PendingOrder) error
	// Get returns domain.ErrNotFound once the entry expired or was deleted.
	Get(ctx context.Context, tempRef string) (*domain.PendingOrder, error)
	MarkFailed(ctx context.Context, tempRef, reason string) error
	Delete(ctx context.Context, tempRef string) error
}

// Memory keeps pending orders in a go-cache with TTL eviction.
type Memory struct {
	c   *cache.Cache
	ttl time.Duration
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{c: cache.New(ttl, ttl/2), ttl: ttl}
}

func (m *Memory) Put(_ context.Context, o *domain.PendingOrder) error {
	cp := *o
	m.c.Set(o.TempReference, &cp, m.ttl)
	return nil
}

func (m *Memory) Get(_ context.Context, tempRef string) (*domain.PendingOrder, error) {
	v, ok := m.c.Get(tempRef)
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v.(*domain.PendingOrder)
	return &cp, nil
}

func (m *Memory) MarkFailed(_ context.Context, tempRef, reason string) error {
	v, exp, ok := m.c.GetWithExpiration(tempRef)
	if !ok {
		return domain.ErrNotFound
	}
	cp := *v.(*domain.PendingOrder)
	cp.Status = domain.PendingOrderFailed
	cp.FailureReason = reason

	remaining := m.ttl
	if !exp.IsZero() {
		remaining = time.Until(exp)
		if remaining <= 0 {
			return domain.ErrNotFound
		}
	}
	m.c.Set(tempRef, &cp, remaining)
	return nil
}

func (m *Memory) Delete(_ context.Context, tempRef string) error {
	m.c.Delete(tempRef)
	return nil
}
