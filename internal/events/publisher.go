// Package events fans booking events out to in-process subscribers and the
// Kafka booking stream once a change is committed.
package events

import (
	"context"
	"sync"

	"hotelrides/internal/domain"

	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, events ...domain.BookingEvent) error
}

// Handler consumes one event. Handlers run on their own goroutine and must
// not assume the request context is still alive.
type Handler func(ctx context.Context, e domain.BookingEvent)

// Bus is an in-process fire-and-forget dispatcher.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	log      *zap.Logger
	wg       sync.WaitGroup
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(_ context.Context, events ...domain.BookingEvent) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, e := range events {
		for _, h := range handlers {
			b.wg.Add(1)
			go b.dispatch(h, e)
		}
	}
	return nil
}

func (b *Bus) dispatch(h Handler, e domain.BookingEvent) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("event_type", string(e.Type)),
				zap.String("booking_reference", e.BookingReference),
				zap.Any("panic", r),
			)
		}
	}()
	h(context.Background(), e)
}

// Wait blocks until dispatched handlers return. Used on shutdown and in tests.
func (b *Bus) Wait() { b.wg.Wait() }

// Multi publishes to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, events ...domain.BookingEvent) error {
	var first error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, events...); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type Nop struct{}

func (Nop) Publish(context.Context, ...domain.BookingEvent) error { return nil }
