package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
)

var userConstraints = map[string]error{
	"users_email_key": errs.ErrDuplicateEmail,
	"users_phone_key": errs.ErrDuplicatePhone,
}

const userColumns = `id, tenant_id, email, phone, password_hash, role, email_verified, phone_verified, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Role, &u.EmailVerified, &u.PhoneVerified, &u.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (tenant_id, email, phone, password_hash, role, email_verified, phone_verified)
		 VALUES ($1, lower($2), $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		u.TenantID, u.Email, u.Phone, u.PasswordHash, u.Role, u.EmailVerified, u.PhoneVerified,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return mapUnique(fmt.Errorf("insert user: %w", err), userConstraints)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email))
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone = $1 AND phone <> ''`, phone))
}

func (s *Store) GetTenantAdmin(ctx context.Context, tenantID uuid.UUID) (*models.User, error) {
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE tenant_id = $1 AND role = $2
		 ORDER BY created_at LIMIT 1`,
		tenantID, models.RoleTenantAdmin))
}

func (s *Store) SetUserVerified(ctx context.Context, id uuid.UUID, channel models.CodeChannel) error {
	var column string
	switch channel {
	case models.CodeChannelEmail:
		column = "email_verified"
	case models.CodeChannelPhone:
		column = "phone_verified"
	default:
		return errs.ErrInvalidInput
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET `+column+` = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
