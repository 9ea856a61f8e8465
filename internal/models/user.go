package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSuperadmin  Role = "superadmin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleAgent       Role = "agent"
	RoleViewer      Role = "viewer"
)

// User belongs to a tenant; TenantID is nil only for the bootstrap
// superadmin. PasswordHash is a bcrypt hash, never the plaintext.
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	TenantID      *uuid.UUID `json:"tenant_id,omitempty" db:"tenant_id"`
	Email         string     `json:"email" db:"email"`
	Phone         string     `json:"phone" db:"phone"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Role          Role       `json:"role" db:"role"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	PhoneVerified bool       `json:"phone_verified" db:"phone_verified"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
