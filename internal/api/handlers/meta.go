package handlers

import (
	"io"
	"net/http"

	"github.com/hamzaiqbal/crmconnect/internal/webhook"
)

// MetaHandler terminates the shared Meta webhook endpoint for WhatsApp,
// Messenger and Instagram.
type MetaHandler struct {
	router *webhook.Router
}

func NewMetaHandler(router *webhook.Router) *MetaHandler {
	return &MetaHandler{router: router}
}

// Verify answers the subscription handshake.
func (h *MetaHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge, err := h.router.VerifyHandshake(
		q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"))
	if err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// Receive ingests an event delivery. Anything past a parse failure is
// acknowledged with 200 so the platform does not retry forever.
func (h *MetaHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	receipt, err := h.router.HandleEvent(r.Context(), body, r.Header.Get("X-Hub-Signature-256"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed payload"})
		return
	}

	resp := map[string]interface{}{"status": "received"}
	if receipt.Duplicate {
		resp["status"] = "duplicate"
	}
	writeJSON(w, http.StatusOK, resp)
}
