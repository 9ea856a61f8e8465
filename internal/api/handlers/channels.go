package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/channel"
	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/tenant"
)

type ChannelHandler struct {
	registry *channel.Registry
}

func NewChannelHandler(registry *channel.Registry) *ChannelHandler {
	return &ChannelHandler{registry: registry}
}

type connectRequest struct {
	Channel     models.Channel `json:"channel"`
	ExternalID  string         `json:"external_id"`
	AccessToken string         `json:"access_token"`
	AppSecret   string         `json:"app_secret"`
}

func (h *ChannelHandler) Connect(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.IDFromContext(r.Context())
	if tenantID == uuid.Nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": errs.ErrForbidden.Error()})
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	acct, err := h.registry.Connect(r.Context(), channel.ConnectRequest{
		TenantID:    tenantID,
		Channel:     req.Channel,
		ExternalID:  req.ExternalID,
		AccessToken: req.AccessToken,
		AppSecret:   req.AppSecret,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"account": acct})
}

func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.IDFromContext(r.Context())
	if tenantID == uuid.Nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": errs.ErrForbidden.Error()})
		return
	}

	accounts, err := h.registry.ListForTenant(r.Context(), tenantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts, "count": len(accounts)})
}

func (h *ChannelHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}
	if err := h.registry.Disconnect(r.Context(), acct.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

type rotateRequest struct {
	AccessToken string `json:"access_token"`
}

func (h *ChannelHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}

	var req rotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "access_token required"})
		return
	}

	if err := h.registry.RotateToken(r.Context(), acct.ID, req.AccessToken); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rotated"})
}

// ownedAccount loads the path account and enforces tenant ownership.
func (h *ChannelHandler) ownedAccount(w http.ResponseWriter, r *http.Request) (*models.ChannelAccount, bool) {
	tenantID := tenant.IDFromContext(r.Context())
	if tenantID == uuid.Nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": errs.ErrForbidden.Error()})
		return nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid account ID"})
		return nil, false
	}

	acct, err := h.registry.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	if acct.TenantID != tenantID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": errs.ErrNotFound.Error()})
		return nil, false
	}
	return acct, true
}
