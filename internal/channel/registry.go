// Package channel owns per-tenant channel credentials and the routing
// index mapping (channel, external_id) to the owning account. Lookups are
// read-lock map hits; mutations write the store first and touch the index
// only under a short critical section, never with I/O in flight.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/store"
)

type routingKey struct {
	channel    models.Channel
	externalID string
}

type Registry struct {
	store  store.Store
	logger *slog.Logger

	mu    sync.RWMutex
	index map[routingKey]models.ChannelAccount
}

func NewRegistry(st store.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  st,
		logger: logger.With("component", "channel_registry"),
		index:  make(map[routingKey]models.ChannelAccount),
	}
}

// Warm loads every persisted account into the routing index. Call once at
// startup, before serving webhooks.
func (r *Registry) Warm(ctx context.Context) error {
	accounts, err := r.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("warm routing index: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range accounts {
		r.index[routingKey{a.Channel, a.ExternalID}] = a
	}
	r.logger.Info("routing index warmed", "accounts", len(accounts))
	return nil
}

type ConnectRequest struct {
	TenantID    uuid.UUID
	Channel     models.Channel
	ExternalID  string
	AccessToken string
	AppSecret   string
}

// Connect attaches a channel credential to an active tenant. The
// (channel, external_id) pair is globally unique: a different tenant
// holding it fails with ErrRoutingKeyTaken, while the owning tenant
// reconnecting refreshes the credential in place.
func (r *Registry) Connect(ctx context.Context, req ConnectRequest) (*models.ChannelAccount, error) {
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	if !req.Channel.Valid() || req.ExternalID == "" {
		return nil, errs.ErrInvalidInput
	}

	t, err := r.store.GetTenant(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TenantActive {
		return nil, errs.ErrTenantNotActive
	}

	existing, err := r.store.GetAccountByRoutingKey(ctx, req.Channel, req.ExternalID)
	switch {
	case err == nil:
		if existing.TenantID != req.TenantID {
			return nil, errs.ErrRoutingKeyTaken
		}
		// Reconnect by the owner: refresh token and signing secret, keep
		// the key.
		if err := r.store.UpdateAccountCredentials(ctx, existing.ID, req.AccessToken, req.AppSecret); err != nil {
			return nil, err
		}
		existing.AccessToken = req.AccessToken
		existing.AppSecret = req.AppSecret
		r.cache(*existing)
		return existing, nil
	case !errors.Is(err, errs.ErrNotFound):
		return nil, fmt.Errorf("check routing key: %w", err)
	}

	a := &models.ChannelAccount{
		TenantID:    req.TenantID,
		Channel:     req.Channel,
		ExternalID:  req.ExternalID,
		AccessToken: req.AccessToken,
		AppSecret:   req.AppSecret,
	}
	if err := r.store.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	r.cache(*a)
	r.logger.Info("channel connected", "tenant_id", req.TenantID, "channel", req.Channel, "external_id", req.ExternalID)
	return a, nil
}

// Lookup resolves a routing key to its account. The index hit path takes
// only a read lock; a miss falls through to the store once and refills.
func (r *Registry) Lookup(ctx context.Context, ch models.Channel, externalID string) (*models.ChannelAccount, error) {
	key := routingKey{ch, externalID}

	r.mu.RLock()
	a, ok := r.index[key]
	r.mu.RUnlock()
	if ok {
		cp := a
		return &cp, nil
	}

	stored, err := r.store.GetAccountByRoutingKey(ctx, ch, externalID)
	if err != nil {
		return nil, err
	}
	r.cache(*stored)
	return stored, nil
}

// Disconnect removes the account and its routing entry; subsequent
// lookups for the key miss.
func (r *Registry) Disconnect(ctx context.Context, accountID uuid.UUID) error {
	a, err := r.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err := r.store.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	r.evict(routingKey{a.Channel, a.ExternalID})
	r.logger.Info("channel disconnected", "tenant_id", a.TenantID, "channel", a.Channel, "external_id", a.ExternalID)
	return nil
}

// DisconnectTenant drops every routing entry the tenant owns. Used when
// an operator suspends a tenant with prejudice.
func (r *Registry) DisconnectTenant(ctx context.Context, tenantID uuid.UUID) error {
	removed, err := r.store.DeleteTenantAccounts(ctx, tenantID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	for _, a := range removed {
		delete(r.index, routingKey{a.Channel, a.ExternalID})
	}
	r.mu.Unlock()
	r.logger.Info("tenant channels disconnected", "tenant_id", tenantID, "count", len(removed))
	return nil
}

// RotateToken swaps the access credential without touching the routing
// key. In-flight dispatches may still hold the old token; new lookups
// see the new one.
func (r *Registry) RotateToken(ctx context.Context, accountID uuid.UUID, newToken string) error {
	if strings.TrimSpace(newToken) == "" {
		return errs.ErrInvalidInput
	}
	if err := r.store.UpdateAccountToken(ctx, accountID, newToken); err != nil {
		return err
	}
	a, err := r.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	r.cache(*a)
	return nil
}

func (r *Registry) Get(ctx context.Context, accountID uuid.UUID) (*models.ChannelAccount, error) {
	return r.store.GetAccount(ctx, accountID)
}

func (r *Registry) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]models.ChannelAccount, error) {
	return r.store.ListTenantAccounts(ctx, tenantID)
}

func (r *Registry) cache(a models.ChannelAccount) {
	r.mu.Lock()
	r.index[routingKey{a.Channel, a.ExternalID}] = a
	r.mu.Unlock()
}

func (r *Registry) evict(key routingKey) {
	r.mu.Lock()
	delete(r.index, key)
	r.mu.Unlock()
}
