// Package events carries notification events from the workflow to the
// notification subscriber. The workflow only publishes; delivery happens on
// the other side of the queue and never feeds back into workflow state.
package events

import (
	"context"
	"errors"

	"github.com/pkordes/showing-tours/internal/domain"
)

// ErrEmpty is returned by Next when no event arrived before its wait ended.
// Callers simply ask again.
var ErrEmpty = errors.New("events: queue empty")

// ErrFull is returned by MemoryQueue.Notify when the buffer is full.
var ErrFull = errors.New("events: queue full")

// Queue is both ends of a notification queue.
type Queue interface {
	// Notify enqueues n for delivery.
	Notify(ctx context.Context, n domain.Notification) error
	// Next blocks until an event is available, the wait times out (ErrEmpty),
	// or ctx is done.
	Next(ctx context.Context) (domain.Notification, error)
}

// MemoryQueue is an in-process Queue backed by a buffered channel. It is used
// when no Redis is configured, with the subscriber running inside the server.
type MemoryQueue struct {
	ch chan domain.Notification
}

// NewMemoryQueue creates a MemoryQueue holding up to size pending events.
func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	return &MemoryQueue{ch: make(chan domain.Notification, size)}
}

// Notify enqueues n without blocking.
func (q *MemoryQueue) Notify(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- n:
		return nil
	default:
		return ErrFull
	}
}

// Next waits for the next event or for ctx to end.
func (q *MemoryQueue) Next(ctx context.Context) (domain.Notification, error) {
	select {
	case n := <-q.ch:
		return n, nil
	case <-ctx.Done():
		return domain.Notification{}, ctx.Err()
	}
}

// Len returns the number of pending events.
func (q *MemoryQueue) Len() int { return len(q.ch) }

var (
	_ Queue = (*MemoryQueue)(nil)
	_ Queue = (*RedisQueue)(nil)
)
