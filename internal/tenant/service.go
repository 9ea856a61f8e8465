// Package tenant owns tenant and user records and the approval state
// machine: pending -> active (approve, gated on a fully verified admin),
// active <-> suspended, pending -> suspended (outright rejection). There
// is no implicit transition and no way back to pending.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/store"
)

type Service struct {
	store  store.Store
	logger *slog.Logger
}

func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger.With("component", "tenant")}
}

type RegisterRequest struct {
	CompanyName  string
	Email        string
	Phone        string
	PasswordHash string
	Locale       string
	Region       string
}

// Register creates a pending tenant and its tenant_admin user with both
// verification flags false. Email and phone must be unused by any user.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.Tenant, *models.User, error) {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if req.CompanyName == "" || req.Email == "" || req.Phone == "" || req.PasswordHash == "" {
		return nil, nil, errs.ErrInvalidInput
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, nil, errs.ErrDuplicateEmail
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.store.GetUserByPhone(ctx, req.Phone); err == nil {
		return nil, nil, errs.ErrDuplicatePhone
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, nil, fmt.Errorf("check phone: %w", err)
	}

	t := &models.Tenant{
		Name:   req.CompanyName,
		Status: models.TenantPending,
		Locale: req.Locale,
		Region: req.Region,
	}
	if err := s.store.CreateTenant(ctx, t); err != nil {
		return nil, nil, fmt.Errorf("create tenant: %w", err)
	}

	u := &models.User{
		TenantID:     &t.ID,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: req.PasswordHash,
		Role:         models.RoleTenantAdmin,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		// The pre-checks make this a race; the store's uniqueness backstop
		// decides the winner. Park the orphaned tenant out of the way.
		_ = s.store.UpdateTenantStatus(ctx, t.ID, models.TenantPending, models.TenantSuspended)
		return nil, nil, err
	}

	s.logger.Info("tenant registered", "tenant_id", t.ID, "user_id", u.ID)
	return t, u, nil
}

// Approve moves a pending tenant to active. It fails with ErrNotVerified
// until the admin user has confirmed both email and phone.
func (s *Service) Approve(ctx context.Context, tenantID uuid.UUID) error {
	admin, err := s.store.GetTenantAdmin(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load tenant admin: %w", err)
	}
	if !admin.EmailVerified || !admin.PhoneVerified {
		return errs.ErrNotVerified
	}
	if err := s.store.UpdateTenantStatus(ctx, tenantID, models.TenantPending, models.TenantActive); err != nil {
		return err
	}
	s.logger.Info("tenant approved", "tenant_id", tenantID)
	return nil
}

// Suspend works from pending (rejecting a registrant) or active. The
// status write commits before return, so the next authorized event sees it.
func (s *Service) Suspend(ctx context.Context, tenantID uuid.UUID) error {
	t, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if t.Status == models.TenantSuspended {
		return errs.ErrInvalidTransition
	}
	if err := s.store.UpdateTenantStatus(ctx, tenantID, t.Status, models.TenantSuspended); err != nil {
		return err
	}
	s.logger.Info("tenant suspended", "tenant_id", tenantID)
	return nil
}

func (s *Service) Reactivate(ctx context.Context, tenantID uuid.UUID) error {
	if err := s.store.UpdateTenantStatus(ctx, tenantID, models.TenantSuspended, models.TenantActive); err != nil {
		return err
	}
	s.logger.Info("tenant reactivated", "tenant_id", tenantID)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Tenant, error) {
	return s.store.ListTenants(ctx)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.store.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}

func (s *Service) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.store.GetUserByPhone(ctx, strings.TrimSpace(phone))
}

// EnsureSuperadmin creates the tenant-less superadmin user on first boot.
// Both verification flags are set; the account is not tied to any tenant.
func (s *Service) EnsureSuperadmin(ctx context.Context, email, passwordHash string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || passwordHash == "" {
		return nil
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("check superadmin: %w", err)
	}
	u := &models.User{
		Email:         email,
		PasswordHash:  passwordHash,
		Role:          models.RoleSuperadmin,
		EmailVerified: true,
		PhoneVerified: true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("create superadmin: %w", err)
	}
	s.logger.Info("superadmin bootstrapped", "email", email)
	return nil
}
