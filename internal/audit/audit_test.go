package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	t.Run("stamps id and time", func(t *testing.T) {
		event := NewEvent(ActionLogin, "alice", RequestMeta{RequestID: "req-1", IP: "192.0.2.1"})

		assert.NotEmpty(t, event.ID)
		assert.WithinDuration(t, time.Now(), event.Timestamp, time.Second)
		assert.Equal(t, ActionLogin, event.Action)
		assert.Equal(t, "alice", event.Username)
		assert.Equal(t, "req-1", event.RequestID)
		assert.Equal(t, "192.0.2.1", event.IP)
	})

	t.Run("parses browser and os from the user agent", func(t *testing.T) {
		const chromeOnLinux = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		event := NewEvent(ActionLogin, "alice", RequestMeta{UserAgent: chromeOnLinux})

		assert.Contains(t, event.Browser, "Chrome")
		assert.NotEmpty(t, event.OS)
	})

	t.Run("empty user agent leaves browser and os blank", func(t *testing.T) {
		event := NewEvent(ActionLogin, "alice", RequestMeta{})

		assert.Empty(t, event.Browser)
		assert.Empty(t, event.OS)
	})
}

func TestPublisherAndWorker(t *testing.T) {
	ctx := context.Background()

	t.Run("worker drains emitted events into the sink", func(t *testing.T) {
		publisher := NewPublisher(8, discardLogger())
		sink := NewMemorySink()
		worker := NewWorker(sink, publisher.Inbox(), discardLogger())

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = worker.Run(runCtx)
		}()

		publisher.Emit(ctx, NewEvent(ActionUserCreated, "alice", RequestMeta{}))
		publisher.Emit(ctx, NewEvent(ActionLogin, "alice", RequestMeta{}))

		require.Eventually(t, func() bool {
			return len(sink.Events()) == 2
		}, time.Second, 10*time.Millisecond)

		cancel()
		<-done

		events := sink.Events()
		assert.Equal(t, ActionUserCreated, events[0].Action)
		assert.Equal(t, ActionLogin, events[1].Action)
	})

	t.Run("emit drops instead of blocking when the buffer is full", func(t *testing.T) {
		publisher := NewPublisher(1, discardLogger())

		done := make(chan struct{})
		go func() {
			defer close(done)
			// No worker is draining; the second emit must return anyway.
			publisher.Emit(ctx, NewEvent(ActionLogin, "alice", RequestMeta{}))
			publisher.Emit(ctx, NewEvent(ActionLogin, "alice", RequestMeta{}))
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("emit blocked on a full buffer")
		}
	})

	t.Run("sink failure does not stop the worker", func(t *testing.T) {
		publisher := NewPublisher(8, discardLogger())
		sink := NewMemorySink()
		worker := NewWorker(failOnceSink{sink: sink}, publisher.Inbox(), discardLogger())

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() { _ = worker.Run(runCtx) }()

		publisher.Emit(ctx, NewEvent(ActionLogin, "alice", RequestMeta{}))
		publisher.Emit(ctx, NewEvent(ActionLogin, "bob", RequestMeta{}))

		require.Eventually(t, func() bool {
			events := sink.Events()
			return len(events) == 1 && events[0].Username == "bob"
		}, time.Second, 10*time.Millisecond)
	})
}

// failOnceSink rejects appends for alice and forwards the rest.
type failOnceSink struct {
	sink *MemorySink
}

func (s failOnceSink) Append(ctx context.Context, event Event) error {
	if event.Username == "alice" {
		return assert.AnError
	}
	return s.sink.Append(ctx, event)
}
