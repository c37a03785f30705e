package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pkordes/showing-tours/internal/domain"
	"github.com/pkordes/showing-tours/internal/events"
)

// Deliverer delivers one notification. *Dispatcher satisfies this interface.
type Deliverer interface {
	Deliver(ctx context.Context, n domain.Notification) error
}

// Subscriber drains a queue and hands each event to a Deliverer.
type Subscriber struct {
	queue   events.Queue
	deliver Deliverer
	log     *slog.Logger

	// backoff is the pause after a queue read error.
	backoff time.Duration
}

// NewSubscriber creates a Subscriber.
func NewSubscriber(queue events.Queue, deliver Deliverer, log *slog.Logger) *Subscriber {
	if log == nil {
		log = slog.Default()
	}
	return &Subscriber{queue: queue, deliver: deliver, log: log, backoff: time.Second}
}

// Run consumes events until ctx is done. It only returns ctx's error.
func (s *Subscriber) Run(ctx context.Context) error {
	s.log.InfoContext(ctx, "notification subscriber started")
	for {
		n, err := s.queue.Next(ctx)
		switch {
		case ctx.Err() != nil:
			s.log.InfoContext(ctx, "notification subscriber stopped")
			return ctx.Err()
		case errors.Is(err, events.ErrEmpty):
			continue
		case err != nil:
			s.log.ErrorContext(ctx, "reading notification queue", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff):
			}
			continue
		}

		if err := s.deliver.Deliver(ctx, n); err != nil {
			s.log.ErrorContext(ctx, "notification delivery failed",
				slog.String("user_id", n.UserID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.log.DebugContext(ctx, "notification delivered", slog.String("user_id", n.UserID.String()))
	}
}
