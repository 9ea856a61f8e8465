// Package conversation defines the outbound contract to the external
// conversation collaborator: a tenant-scoped, channel-scoped normalized
// message carrying the resolved credential needed to send a reply. Reply
// generation itself lives outside this system.
package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/models"
)

// Message is the normalized record handed to the collaborator.
type Message struct {
	TenantID   uuid.UUID      `json:"tenant_id"`
	AccountID  uuid.UUID      `json:"account_id"`
	Channel    models.Channel `json:"channel"`
	RoutingKey string         `json:"routing_key"`
	SenderID   string         `json:"sender_id"`
	MessageID  string         `json:"message_id,omitempty"`
	Text       string         `json:"text,omitempty"`
	// AccessToken is the channel credential resolved at routing time; the
	// collaborator uses it to send the reply.
	AccessToken string    `json:"access_token"`
	ReceivedAt  time.Time `json:"received_at"`
}

// Dispatcher forwards routed messages to the collaborator. Implementations
// must not block the webhook acknowledgment path.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, msg Message) error

func (f DispatcherFunc) Dispatch(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
