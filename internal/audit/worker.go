package audit

import (
	"context"
	"log/slog"
)

// Sink persists or publishes audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Worker consumes audit events from the publisher's channel and hands them
// to the sink. Sink failures are logged and skipped; audit delivery is best
// effort and must never take the service down.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "append audit event",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
