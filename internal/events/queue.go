package events

import (
	"context"
	"errors"
	"sync"

	"hotelrides/internal/domain"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Queue hands batches to a slow publisher from a single goroutine so callers
// never wait on the broker. Batches are delivered in Publish order.
type Queue struct {
	next Publisher
	ch   chan []domain.BookingEvent
	done chan struct{}
	log  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewQueue(next Publisher, size int, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	if size <= 0 {
		size = 1024
	}
	q := &Queue{
		next: next,
		ch:   make(chan []domain.BookingEvent, size),
		done: make(chan struct{}),
		log:  log,
	}
	go q.run()
	return q
}

// Publish enqueues without blocking. A full queue drops the batch.
func (q *Queue) Publish(_ context.Context, events ...domain.BookingEvent) error {
	if len(events) == 0 {
		return nil
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- events:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for batch := range q.ch {
		if err := q.next.Publish(context.Background(), batch...); err != nil {
			q.log.Warn("queued event publish failed",
				zap.String("booking_reference", batch[0].BookingReference),
				zap.Int("events", len(batch)),
				zap.Error(err))
		}
	}
}

// Close stops accepting events and waits for queued ones to be handed off.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	<-q.done
}
