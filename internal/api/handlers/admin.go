package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/channel"
	"github.com/hamzaiqbal/crmconnect/internal/tenant"
)

type AdminHandler struct {
	tenants  *tenant.Service
	registry *channel.Registry
}

func NewAdminHandler(ts *tenant.Service, registry *channel.Registry) *AdminHandler {
	return &AdminHandler{tenants: ts, registry: registry}
}

func (h *AdminHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tenants": tenants, "count": len(tenants)})
}

func (h *AdminHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}
	t, err := h.tenants.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tenant": t})
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tenants.Approve, "active")
}

// Suspend blocks the tenant and tears down its live routing entries so
// in-flight webhooks stop matching immediately.
func (h *AdminHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}
	if err := h.tenants.Suspend(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.registry.DisconnectTenant(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "suspended"})
}

func (h *AdminHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tenants.Reactivate, "active")
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) error, status string) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}
	if err := fn(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}
