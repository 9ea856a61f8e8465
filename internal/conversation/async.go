package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AsyncDispatcher decouples dispatch from the webhook acknowledgment: a
// buffered hand-off to a single delivery goroutine. When the buffer is
// full the message is dropped and logged rather than blocking the ack.
// Close stops the delivery goroutine; buffered messages are abandoned.
type AsyncDispatcher struct {
	inner    Dispatcher
	messages chan Message
	timeout  time.Duration
	logger   *slog.Logger

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func NewAsyncDispatcher(inner Dispatcher, buffer int, timeout time.Duration, logger *slog.Logger) *AsyncDispatcher {
	if buffer <= 0 {
		buffer = 1000
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &AsyncDispatcher{
		inner:    inner,
		messages: make(chan Message, buffer),
		timeout:  timeout,
		logger:   logger.With("component", "dispatcher"),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go d.processLoop()
	return d
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, msg Message) error {
	select {
	case d.messages <- msg:
	default:
		d.logger.Warn("dispatch queue full, dropping",
			"tenant_id", msg.TenantID, "channel", msg.Channel, "message_id", msg.MessageID)
	}
	return nil
}

// Close stops the delivery goroutine and returns once it has exited.
func (d *AsyncDispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
	<-d.stopped
}

func (d *AsyncDispatcher) processLoop() {
	defer close(d.stopped)
	for {
		select {
		case msg := <-d.messages:
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			if err := d.inner.Dispatch(ctx, msg); err != nil {
				d.logger.Error("dispatch failed",
					"tenant_id", msg.TenantID, "channel", msg.Channel, "message_id", msg.MessageID, "error", err)
			}
			cancel()
		case <-d.done:
			return
		}
	}
}
