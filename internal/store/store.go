// Package store defines the persistence contract the lifecycle, code and
// registry services are written against. Two implementations exist:
// postgres (pgx) for deployments and memory for tests and DB-less runs.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/models"
)

type TenantStore interface {
	CreateTenant(ctx context.Context, t *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]models.Tenant, error)
	// UpdateTenantStatus is a compare-and-set: it only succeeds when the
	// tenant is currently in from, and returns errs.ErrInvalidTransition
	// otherwise. This is what makes suspend visible "immediately after
	// commit" without any router-side coordination.
	UpdateTenantStatus(ctx context.Context, id uuid.UUID, from, to models.TenantStatus) error
}

type UserStore interface {
	// CreateUser enforces global email/phone uniqueness and reports
	// errs.ErrDuplicateEmail / errs.ErrDuplicatePhone.
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	// GetTenantAdmin returns the tenant_admin user owning the tenant.
	GetTenantAdmin(ctx context.Context, tenantID uuid.UUID) (*models.User, error)
	SetUserVerified(ctx context.Context, id uuid.UUID, channel models.CodeChannel) error
}

type CodeStore interface {
	CreateCode(ctx context.Context, c *models.OneTimeCode) error
	// LatestCode returns the newest code for (user, channel) whether or not
	// it is still usable; callers decide between Expired/AlreadyUsed.
	LatestCode(ctx context.Context, userID uuid.UUID, channel models.CodeChannel) (*models.OneTimeCode, error)
	// ConsumeCode atomically flips used from false to true. It reports
	// false when another caller already consumed the code.
	ConsumeCode(ctx context.Context, id uuid.UUID) (bool, error)
	InvalidateCodes(ctx context.Context, userID uuid.UUID, channel models.CodeChannel) error
}

type ChannelStore interface {
	// CreateAccount enforces (channel, external_id) uniqueness and reports
	// errs.ErrRoutingKeyTaken on collision.
	CreateAccount(ctx context.Context, a *models.ChannelAccount) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.ChannelAccount, error)
	GetAccountByRoutingKey(ctx context.Context, channel models.Channel, externalID string) (*models.ChannelAccount, error)
	ListAccounts(ctx context.Context) ([]models.ChannelAccount, error)
	ListTenantAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.ChannelAccount, error)
	UpdateAccountToken(ctx context.Context, id uuid.UUID, token string) error
	// UpdateAccountCredentials refreshes both the access token and the
	// signing secret in one write, for owner reconnects.
	UpdateAccountCredentials(ctx context.Context, id uuid.UUID, token, secret string) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	// DeleteTenantAccounts removes every account of the tenant and returns
	// the removed rows so the routing index can be purged in step.
	DeleteTenantAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.ChannelAccount, error)
}

// Store is the full persistence surface.
type Store interface {
	TenantStore
	UserStore
	CodeStore
	ChannelStore
}
