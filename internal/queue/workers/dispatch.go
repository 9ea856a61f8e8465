package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/hamzaiqbal/crmconnect/internal/conversation"
	"github.com/hamzaiqbal/crmconnect/internal/queue"
)

// DispatchWorker drains event:dispatch tasks and forwards them to the
// conversation collaborator.
type DispatchWorker struct {
	forwarder conversation.Dispatcher
}

func NewDispatchWorker(forwarder conversation.Dispatcher) *DispatchWorker {
	return &DispatchWorker{forwarder: forwarder}
}

func (w *DispatchWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload queue.EventDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal dispatch payload: %w", err)
	}
	if w.forwarder == nil {
		slog.Info("no collaborator configured, dropping message",
			"tenant_id", payload.Message.TenantID, "channel", payload.Message.Channel)
		return nil
	}
	if err := w.forwarder.Dispatch(ctx, payload.Message); err != nil {
		return fmt.Errorf("forward to collaborator: %w", err)
	}
	return nil
}
