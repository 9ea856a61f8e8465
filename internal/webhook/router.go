// Package webhook classifies inbound platform events, resolves them to a
// tenant-owned channel account and hands authorized events to the
// conversation collaborator. Everything that parses is acknowledged
// upstream; failures past the parse are recorded, never returned as
// failing responses, so the platform does not retry-storm us.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/conversation"
	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
)

// AccountResolver is the routing index read path.
type AccountResolver interface {
	Lookup(ctx context.Context, ch models.Channel, externalID string) (*models.ChannelAccount, error)
}

// TenantResolver reads tenant state for the authorize step. Status must
// be read fresh per event: a suspend committed between two events is
// visible to the second one.
type TenantResolver interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type Router struct {
	accounts    AccountResolver
	tenants     TenantResolver
	dedup       Deduper
	dispatcher  conversation.Dispatcher
	verifyToken string
	logger      *slog.Logger

	now func() time.Time
}

func NewRouter(accounts AccountResolver, tenants TenantResolver, dedup Deduper, dispatcher conversation.Dispatcher, verifyToken string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		accounts:    accounts,
		tenants:     tenants,
		dedup:       dedup,
		dispatcher:  dispatcher,
		verifyToken: verifyToken,
		logger:      logger.With("component", "webhook_router"),
		now:         time.Now,
	}
}

// VerifyHandshake implements the subscription challenge: the challenge is
// echoed only when the mode is "subscribe" and the pre-shared token
// matches. Anything else fails closed.
func (r *Router) VerifyHandshake(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || r.verifyToken == "" || token != r.verifyToken {
		return "", errs.ErrForbidden
	}
	return challenge, nil
}

// Receipt records how an event was handled. Reason is nil only when the
// event was dispatched.
type Receipt struct {
	Channel    models.Channel
	RoutingKey string
	EventID    string
	Dispatched bool
	Duplicate  bool
	Reason     error
}

// HandleEvent runs the ingestion pipeline: classify, extract, resolve,
// verify signature, authorize, dedup, dispatch. A non-nil error is
// returned only when the payload cannot be parsed; every later failure is
// recorded on the Receipt and the caller acknowledges regardless.
func (r *Router) HandleEvent(ctx context.Context, raw []byte, signature string) (*Receipt, error) {
	ev, err := ParseEvent(raw)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{}

	ch, err := Classify(ev)
	if err != nil {
		receipt.Reason = err
		r.logger.Warn("unrecognized event object", "object", ev.Object)
		return receipt, nil
	}
	receipt.Channel = ch

	key := RoutingKey(ch, ev)
	if key == "" {
		receipt.Reason = errs.ErrInvalidInput
		r.logger.Warn("event missing routing key", "channel", ch)
		return receipt, nil
	}
	receipt.RoutingKey = key

	account, err := r.accounts.Lookup(ctx, ch, key)
	if err != nil {
		receipt.Reason = errs.ErrUnknownRoutingKey
		r.logger.Warn("no account for routing key", "channel", ch, "routing_key", key)
		return receipt, nil
	}

	// The signing secret is per-account, so verification necessarily
	// follows resolution. Accounts without a secret run in a documented
	// weaker mode and skip the check.
	if account.AppSecret != "" && !validSignature(raw, signature, account.AppSecret) {
		receipt.Reason = errs.ErrSignatureMismatch
		r.logger.Warn("signature mismatch", "channel", ch, "routing_key", key, "tenant_id", account.TenantID)
		return receipt, nil
	}

	t, err := r.tenants.Get(ctx, account.TenantID)
	if err != nil {
		receipt.Reason = err
		r.logger.Error("tenant load failed", "tenant_id", account.TenantID, "error", err)
		return receipt, nil
	}
	if t.Status != models.TenantActive {
		receipt.Reason = errs.ErrTenantNotActive
		r.logger.Warn("event for inactive tenant dropped",
			"tenant_id", t.ID, "status", t.Status, "channel", ch, "routing_key", key)
		return receipt, nil
	}

	eventID := EventID(ch, ev)
	receipt.EventID = eventID

	// Dev runs may come up with no dispatcher at all; the event is still
	// acknowledged, just dropped before it is claimed.
	if r.dispatcher == nil {
		r.logger.Warn("no dispatcher configured, dropping message",
			"tenant_id", t.ID, "channel", ch, "routing_key", key)
		return receipt, nil
	}

	if eventID != "" && r.dedup != nil {
		won, err := r.dedup.Claim(ctx, ch, eventID)
		if err != nil {
			// Dedup backend trouble should not drop traffic; the platform
			// bounds redelivery on its side.
			r.logger.Error("dedup claim failed", "event_id", eventID, "error", err)
		} else if !won {
			receipt.Duplicate = true
			return receipt, nil
		}
	}

	sender, text := senderAndText(ch, ev)
	msg := conversation.Message{
		TenantID:    t.ID,
		AccountID:   account.ID,
		Channel:     ch,
		RoutingKey:  key,
		SenderID:    sender,
		MessageID:   eventID,
		Text:        text,
		AccessToken: account.AccessToken,
		ReceivedAt:  r.now().UTC(),
	}
	if err := r.dispatcher.Dispatch(ctx, msg); err != nil {
		// Upstream redelivery is the only retry path, so an event that was
		// never handed off must give its claim back or the redelivery is
		// dropped as a duplicate.
		if eventID != "" && r.dedup != nil {
			if relErr := r.dedup.Release(ctx, ch, eventID); relErr != nil {
				r.logger.Error("dedup release failed", "event_id", eventID, "error", relErr)
			}
		}
		r.logger.Error("dispatch failed", "tenant_id", t.ID, "channel", ch, "error", err)
		receipt.Reason = err
		return receipt, nil
	}

	receipt.Dispatched = true
	return receipt, nil
}

func validSignature(payload []byte, header, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
