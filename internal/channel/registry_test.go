package channel

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/store/memory"
)

func seedTenant(t *testing.T, st *memory.Store, status models.TenantStatus) uuid.UUID {
	t.Helper()
	tn := &models.Tenant{Name: "Acme", Status: status}
	require.NoError(t, st.CreateTenant(context.Background(), tn))
	return tn.ID
}

func TestConnectAndLookup(t *testing.T) {
	st := memory.New()
	reg := NewRegistry(st, nil)
	ctx := context.Background()
	tenantID := seedTenant(t, st, models.TenantActive)

	acct, err := reg.Connect(ctx, ConnectRequest{
		TenantID:    tenantID,
		Channel:     models.ChannelWhatsApp,
		ExternalID:  "phone-123",
		AccessToken: "tok-1",
		AppSecret:   "sec-1",
	})
	require.NoError(t, err)
	assert.Equal(t, tenantID, acct.TenantID)

	got, err := reg.Lookup(ctx, models.ChannelWhatsApp, "phone-123")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)
	assert.Equal(t, "tok-1", got.AccessToken)

	// Same external id under a different channel is a different key.
	_, err = reg.Lookup(ctx, models.ChannelMessenger, "phone-123")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestConnectValidation(t *testing.T) {
	st := memory.New()
	reg := NewRegistry(st, nil)
	ctx := context.Background()
	tenantID := seedTenant(t, st, models.TenantActive)

	_, err := reg.Connect(ctx, ConnectRequest{TenantID: tenantID, Channel: "telegram", ExternalID: "x"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = reg.Connect(ctx, ConnectRequest{TenantID: tenantID, Channel: models.ChannelWhatsApp, ExternalID: "   "})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestConnectRequiresActiveTenant(t *testing.T) {
	st := memory.New()
	reg := NewRegistry(st, nil)
	ctx := context.Background()

	pending := seedTenant(t, st, models.TenantPending)
	_, err := reg.Connect(ctx, ConnectRequest{
		TenantID: pending, Channel: models.ChannelWhatsApp, ExternalID: "p1", AccessToken: "t",
	})
	assert.ErrorIs(t, err, errs.ErrTenantNotActive)

	suspended := seedTenant(t, st, models.TenantSuspended)
	_, err = reg.Connect(ctx, ConnectRequest{
		TenantID: suspended, Channel: models.ChannelWhatsApp, ExternalID: "p1", AccessToken: "t",
	})
	assert.ErrorIs(t, err, errs.ErrTenantNotActive)
}

func TestRoutingKeyTaken(t *testing.T) {
	st := memory.New()
	reg := NewRegistry(st, nil)
	ctx := context.Background()

	first := seedTenant(t, st, models.TenantActive)
	second := seedTenant(t, st, models.TenantActive)

	_, err := reg.Connect(ctx, ConnectRequest{
		TenantID: first, Channel: models.ChannelMessenger, ExternalID: "page-9", AccessToken: "t1",
	})
	require.NoError(t, err)

	_, err = reg.Connect(ctx, ConnectRequest{
		TenantID: second, Channel: models.ChannelMessenger, ExternalID: "page-9", AccessToken: "t2",
	})
	assert.ErrorIs(t, err, errs.ErrRoutingKeyTaken)
}

func TestReconnectRefreshesCredential(t *testing.T) {
	st := memory.New()
	reg := NewRegistry(st, nil)
	ctx := context.Background()
	tenantID := seedTenant(t, st, models.TenantActive)

	acct, err := reg.Connect(ctx, ConnectRequest{
		TenantID: tenantID, Channel: models.ChannelInstagram, ExternalID: "ig-1",
		AccessToken: "old", AppSecret: "old-secret",
	})
	require.NoError(t, err)

	again, err := reg.Connect(ctx, ConnectRequest{
		TenantID: tenantID, Channel: models.ChannelInstagram, ExternalID: "ig-1",
		AccessToken: "new", AppSecret: "new-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, acct.ID, again.ID)

	// Token and signing secret both follow the reconnect, so signature
	// checks keep working after the app rotates its secret.
	got, err := reg.Lookup(ctx, models.ChannelInstagram, "ig-1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
	assert.Equal(t, "new-secret", got.AppSecret)

	stored, err := st.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", stored.AccessToken)
	assert.Equal(t, "new-secret", stored.AppSecret)
}

func TestDisconnect(t *testing.T) {
	st := memory.New()
	reg := NewRegistry(st, nil)
	ctx := context.Background()
	tenantID := seedTenant(t, st, models.TenantActive)

	acct, err := reg.Connect(ctx, ConnectRequest{
		TenantID: tenantID, Channel: models.ChannelWhatsApp, ExternalID: "p1", AccessToken: "t",
	})
	require.NoError(t, err)

	require.NoError(t, reg.Disconnect(ctx, acct.ID))

	_, err = reg.Lookup(ctx, models.ChannelWhatsApp, "p1")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.ErrorIs(t, reg.Disconnect(ctx, acct.ID), errs.ErrNotFound)
}

func TestDisconnectTenantPurgesIndex(t *testing.T) {
	st := memory.New()
	reg := NewRegistry(st, nil)
	ctx := context.Background()

	target := seedTenant(t, st, models.TenantActive)
	other := seedTenant(t, st, models.TenantActive)

	for i, ch := range []models.Channel{models.ChannelWhatsApp, models.ChannelMessenger} {
		_, err := reg.Connect(ctx, ConnectRequest{
			TenantID: target, Channel: ch, ExternalID: fmt.Sprintf("key-%d", i), AccessToken: "t",
		})
		require.NoError(t, err)
	}
	kept, err := reg.Connect(ctx, ConnectRequest{
		TenantID: other, Channel: models.ChannelWhatsApp, ExternalID: "other-key", AccessToken: "t",
	})
	require.NoError(t, err)

	require.NoError(t, reg.DisconnectTenant(ctx, target))

	_, err = reg.Lookup(ctx, models.ChannelWhatsApp, "key-0")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = reg.Lookup(ctx, models.ChannelMessenger, "key-1")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	got, err := reg.Lookup(ctx, models.ChannelWhatsApp, "other-key")
	require.NoError(t, err)
	assert.Equal(t, kept.ID, got.ID)
}

func TestRotateToken(t *testing.T) {
	st := memory.New()
	reg := NewRegistry(st, nil)
	ctx := context.Background()
	tenantID := seedTenant(t, st, models.TenantActive)

	acct, err := reg.Connect(ctx, ConnectRequest{
		TenantID: tenantID, Channel: models.ChannelWhatsApp, ExternalID: "p1", AccessToken: "old",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, reg.RotateToken(ctx, acct.ID, "  "), errs.ErrInvalidInput)
	require.NoError(t, reg.RotateToken(ctx, acct.ID, "fresh"))

	got, err := reg.Lookup(ctx, models.ChannelWhatsApp, "p1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.AccessToken)
}

func TestLookupFallsBackToStore(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tenantID := seedTenant(t, st, models.TenantActive)

	acct := &models.ChannelAccount{
		TenantID: tenantID, Channel: models.ChannelWhatsApp, ExternalID: "warm-1", AccessToken: "t",
	}
	require.NoError(t, st.CreateAccount(ctx, acct))

	// Fresh registry, cold index: the miss falls through to the store.
	reg := NewRegistry(st, nil)
	got, err := reg.Lookup(ctx, models.ChannelWhatsApp, "warm-1")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)
}

func TestWarm(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	tenantID := seedTenant(t, st, models.TenantActive)
	require.NoError(t, st.CreateAccount(ctx, &models.ChannelAccount{
		TenantID: tenantID, Channel: models.ChannelInstagram, ExternalID: "ig-7", AccessToken: "t",
	}))

	reg := NewRegistry(st, nil)
	require.NoError(t, reg.Warm(ctx))

	got, err := reg.Lookup(ctx, models.ChannelInstagram, "ig-7")
	require.NoError(t, err)
	assert.Equal(t, "ig-7", got.ExternalID)
}

func TestConcurrentLookups(t *testing.T) {
	st := memory.New()
	reg := NewRegistry(st, nil)
	ctx := context.Background()
	tenantID := seedTenant(t, st, models.TenantActive)

	for i := 0; i < 4; i++ {
		_, err := reg.Connect(ctx, ConnectRequest{
			TenantID: tenantID, Channel: models.ChannelWhatsApp,
			ExternalID: fmt.Sprintf("p-%d", i), AccessToken: "t",
		})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("p-%d", i%4)
			got, err := reg.Lookup(ctx, models.ChannelWhatsApp, key)
			assert.NoError(t, err)
			assert.Equal(t, key, got.ExternalID)
		}(i)
	}
	wg.Wait()
}
