package models

import (
	"time"

	"github.com/google/uuid"
)

type TenantStatus string

const (
	TenantPending   TenantStatus = "pending"
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

// Tenant is a customer organization. It is never hard-deleted: suspension
// is the deletion analog, and only active tenants are routable.
type Tenant struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Status    TenantStatus `json:"status" db:"status"`
	Locale    string       `json:"locale,omitempty" db:"locale"`
	Region    string       `json:"region,omitempty" db:"region"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
