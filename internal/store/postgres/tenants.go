package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
)

func (s *Store) CreateTenant(ctx context.Context, t *models.Tenant) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO tenants (name, status, locale, region)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		t.Name, t.Status, t.Locale, t.Region,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.QueryRow(ctx,
		`SELECT id, name, status, locale, region, created_at, updated_at
		 FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Status, &t.Locale, &t.Region, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, status, locale, region, created_at, updated_at
		 FROM tenants ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.Locale, &t.Region, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// UpdateTenantStatus relies on the WHERE status = from predicate for its
// compare-and-set semantics: zero rows means the tenant either does not
// exist or was not in the expected state.
func (s *Store) UpdateTenantStatus(ctx context.Context, id uuid.UUID, from, to models.TenantStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tenants SET status = $3, updated_at = now()
		 WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return fmt.Errorf("update tenant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetTenant(ctx, id); err != nil {
			return err
		}
		return errs.ErrInvalidTransition
	}
	return nil
}
