package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzaiqbal/crmconnect/internal/channel"
	"github.com/hamzaiqbal/crmconnect/internal/conversation"
	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/store/memory"
	"github.com/hamzaiqbal/crmconnect/internal/tenant"
	"github.com/hamzaiqbal/crmconnect/internal/webhook"
)

func newMetaHandler(t *testing.T) *MetaHandler {
	t.Helper()
	st := memory.New()
	ts := tenant.NewService(st, nil)
	reg := channel.NewRegistry(st, nil)
	ctx := context.Background()

	tn := &models.Tenant{Name: "Acme", Status: models.TenantActive}
	require.NoError(t, st.CreateTenant(ctx, tn))
	_, err := reg.Connect(ctx, channel.ConnectRequest{
		TenantID: tn.ID, Channel: models.ChannelMessenger, ExternalID: "page-55", AccessToken: "t",
	})
	require.NoError(t, err)

	sink := conversation.DispatcherFunc(func(ctx context.Context, msg conversation.Message) error {
		return nil
	})
	dedup := webhook.NewMemoryDeduper(time.Hour)
	t.Cleanup(dedup.Close)
	router := webhook.NewRouter(reg, ts, dedup, sink, "verify-me", nil)
	return NewMetaHandler(router)
}

func TestMetaVerify(t *testing.T) {
	h := newMetaHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/meta?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", nil)
	h.Verify(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Body.String())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet,
		"/webhooks/meta?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", nil)
	h.Verify(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMetaReceive(t *testing.T) {
	h := newMetaHandler(t)
	body := `{
	  "object": "page",
	  "entry": [{
	    "id": "page-55",
	    "messaging": [{
	      "sender": {"id": "psid-7"},
	      "recipient": {"id": "page-55"},
	      "message": {"mid": "mid.42", "text": "hi"}
	    }]
	  }]
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/meta", strings.NewReader(body))
	h.Receive(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "received")

	// A redelivery is still acknowledged with 200.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhooks/meta", strings.NewReader(body))
	h.Receive(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate")

	// Only a malformed body is rejected.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhooks/meta", strings.NewReader("{"))
	h.Receive(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unroutable events are acknowledged so the platform stops retrying.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhooks/meta",
		strings.NewReader(`{"object":"page","entry":[{"id":"unknown-page","messaging":[]}]}`))
	h.Receive(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
