package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/queue"
)

// DeliveryWorker hands one-time codes to the email/SMS transports. Real
// transports live outside this system; the worker logs the hand-off.
type DeliveryWorker struct{}

func NewDeliveryWorker() *DeliveryWorker {
	return &DeliveryWorker{}
}

func (w *DeliveryWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload queue.CodeDeliverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal delivery payload: %w", err)
	}
	switch payload.Channel {
	case models.CodeChannelEmail:
		slog.Info("mock email code", "to", payload.Recipient, "code", payload.Code)
	case models.CodeChannelPhone:
		slog.Info("mock sms code", "to", payload.Recipient, "code", payload.Code)
	default:
		slog.Warn("unknown delivery channel", "channel", payload.Channel)
	}
	return nil
}
