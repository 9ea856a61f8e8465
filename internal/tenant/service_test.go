package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/store/memory"
)

func testRegister(t *testing.T, svc *Service, email, phone string) (*models.Tenant, *models.User) {
	t.Helper()
	tn, u, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName:  "Acme",
		Email:        email,
		Phone:        phone,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return tn, u
}

func TestRegister(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil)

	tn, u := testRegister(t, svc, "Admin@Acme.Test", "+15550100")
	assert.Equal(t, models.TenantPending, tn.Status)
	assert.Equal(t, models.RoleTenantAdmin, u.Role)
	assert.Equal(t, "admin@acme.test", u.Email)
	assert.False(t, u.EmailVerified)
	assert.False(t, u.PhoneVerified)
	require.NotNil(t, u.TenantID)
	assert.Equal(t, tn.ID, *u.TenantID)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(memory.New(), nil)
	_, _, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Acme",
		Email:       "a@b.test",
	})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestRegisterDuplicates(t *testing.T) {
	svc := NewService(memory.New(), nil)
	testRegister(t, svc, "admin@acme.test", "+15550100")

	_, _, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName:  "Other",
		Email:        "ADMIN@acme.test",
		Phone:        "+15550199",
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, errs.ErrDuplicateEmail)

	_, _, err = svc.Register(context.Background(), RegisterRequest{
		CompanyName:  "Other",
		Email:        "other@acme.test",
		Phone:        "+15550100",
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, errs.ErrDuplicatePhone)
}

func TestApproveRequiresVerifiedAdmin(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil)
	ctx := context.Background()

	tn, u := testRegister(t, svc, "admin@acme.test", "+15550100")

	assert.ErrorIs(t, svc.Approve(ctx, tn.ID), errs.ErrNotVerified)

	require.NoError(t, st.SetUserVerified(ctx, u.ID, models.CodeChannelEmail))
	assert.ErrorIs(t, svc.Approve(ctx, tn.ID), errs.ErrNotVerified)

	require.NoError(t, st.SetUserVerified(ctx, u.ID, models.CodeChannelPhone))
	require.NoError(t, svc.Approve(ctx, tn.ID))

	got, err := svc.Get(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TenantActive, got.Status)

	// Approve is pending -> active only.
	assert.ErrorIs(t, svc.Approve(ctx, tn.ID), errs.ErrInvalidTransition)
}

func TestStatusTransitions(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil)
	ctx := context.Background()

	tn, u := testRegister(t, svc, "admin@acme.test", "+15550100")
	require.NoError(t, st.SetUserVerified(ctx, u.ID, models.CodeChannelEmail))
	require.NoError(t, st.SetUserVerified(ctx, u.ID, models.CodeChannelPhone))
	require.NoError(t, svc.Approve(ctx, tn.ID))

	require.NoError(t, svc.Suspend(ctx, tn.ID))
	assert.ErrorIs(t, svc.Suspend(ctx, tn.ID), errs.ErrInvalidTransition)

	require.NoError(t, svc.Reactivate(ctx, tn.ID))
	got, err := svc.Get(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TenantActive, got.Status)

	assert.ErrorIs(t, svc.Reactivate(ctx, tn.ID), errs.ErrInvalidTransition)
}

func TestSuspendPendingTenant(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil)
	ctx := context.Background()

	// An operator can reject a registrant outright.
	tn, _ := testRegister(t, svc, "admin@acme.test", "+15550100")
	require.NoError(t, svc.Suspend(ctx, tn.ID))

	got, err := svc.Get(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TenantSuspended, got.Status)

	// Suspension is terminal for a never-approved tenant only via
	// reactivate, which still lands on active.
	require.NoError(t, svc.Reactivate(ctx, tn.ID))
}

func TestEnsureSuperadmin(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil)
	ctx := context.Background()

	require.NoError(t, svc.EnsureSuperadmin(ctx, "root@crm.test", "hash"))
	require.NoError(t, svc.EnsureSuperadmin(ctx, "root@crm.test", "hash"))

	u, err := svc.GetUserByEmail(ctx, "root@crm.test")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperadmin, u.Role)
	assert.Nil(t, u.TenantID)
	assert.True(t, u.EmailVerified)
	assert.True(t, u.PhoneVerified)
}
