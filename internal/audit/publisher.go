package audit

import (
	"context"
	"log/slog"
	"time"
)

// Emitter is the narrow interface services use to record events.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Publisher buffers events on a channel for the worker to drain. Emit never
// blocks the request path: when the buffer is full the event is dropped with
// a warning.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit stamps the event if needed and enqueues it.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
		)
	}
}

// Inbox exposes the channel for the worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

// NopEmitter discards events; used where audit is not wired.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) {}
