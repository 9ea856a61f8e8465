package queue

import (
	"github.com/hamzaiqbal/crmconnect/internal/conversation"
	"github.com/hamzaiqbal/crmconnect/internal/models"
)

const (
	TypeEventDispatch = "event:dispatch"
	TypeCodeDeliver   = "code:deliver"
)

// EventDispatchPayload wraps a normalized message for the worker to
// forward to the conversation collaborator.
type EventDispatchPayload struct {
	Message conversation.Message `json:"message"`
}

// CodeDeliverPayload carries a one-time code to the delivery worker. The
// queue is the hand-off to the delivery collaborator; the code never
// lands in the primary store in the clear.
type CodeDeliverPayload struct {
	UserID    string             `json:"user_id"`
	Channel   models.CodeChannel `json:"channel"`
	Recipient string             `json:"recipient"`
	Code      string             `json:"code"`
}
