package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/hamzaiqbal/crmconnect/internal/config"
	"github.com/hamzaiqbal/crmconnect/internal/conversation"
	"github.com/hamzaiqbal/crmconnect/internal/models"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Dispatch satisfies conversation.Dispatcher: the message is queued for
// the worker, keeping the webhook acknowledgment path non-blocking.
func (c *Client) Dispatch(ctx context.Context, msg conversation.Message) error {
	return c.enqueue(TypeEventDispatch, EventDispatchPayload{Message: msg},
		asynq.MaxRetry(5), asynq.Timeout(30*time.Second))
}

// Send satisfies otp.Sender by queueing the code for the delivery worker.
func (c *Client) Send(ctx context.Context, user *models.User, channel models.CodeChannel, code string) error {
	recipient := user.Email
	if channel == models.CodeChannelPhone {
		recipient = user.Phone
	}
	return c.enqueue(TypeCodeDeliver, CodeDeliverPayload{
		UserID:    user.ID.String(),
		Channel:   channel,
		Recipient: recipient,
		Code:      code,
	}, asynq.MaxRetry(3), asynq.Timeout(time.Minute))
}

func (c *Client) enqueue(taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
