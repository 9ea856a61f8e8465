package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
)

var accountConstraints = map[string]error{
	"channel_accounts_channel_external_id_key": errs.ErrRoutingKeyTaken,
}

const accountColumns = `id, tenant_id, channel, external_id, access_token, app_secret, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.ChannelAccount, error) {
	var a models.ChannelAccount
	err := row.Scan(&a.ID, &a.TenantID, &a.Channel, &a.ExternalID,
		&a.AccessToken, &a.AppSecret, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *models.ChannelAccount) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO channel_accounts (tenant_id, channel, external_id, access_token, app_secret)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		a.TenantID, a.Channel, a.ExternalID, a.AccessToken, a.AppSecret,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return mapUnique(fmt.Errorf("insert channel account: %w", err), accountConstraints)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*models.ChannelAccount, error) {
	return scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM channel_accounts WHERE id = $1`, id))
}

func (s *Store) GetAccountByRoutingKey(ctx context.Context, channel models.Channel, externalID string) (*models.ChannelAccount, error) {
	return scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM channel_accounts
		 WHERE channel = $1 AND external_id = $2`,
		channel, externalID))
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.ChannelAccount, error) {
	return s.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM channel_accounts`)
}

func (s *Store) ListTenantAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.ChannelAccount, error) {
	return s.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM channel_accounts
		 WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
}

func (s *Store) queryAccounts(ctx context.Context, sql string, args ...any) ([]models.ChannelAccount, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query channel accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.ChannelAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (s *Store) UpdateAccountToken(ctx context.Context, id uuid.UUID, token string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE channel_accounts SET access_token = $2, updated_at = now() WHERE id = $1`,
		id, token,
	)
	if err != nil {
		return fmt.Errorf("rotate token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAccountCredentials(ctx context.Context, id uuid.UUID, token, secret string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE channel_accounts SET access_token = $2, app_secret = $3, updated_at = now() WHERE id = $1`,
		id, token, secret,
	)
	if err != nil {
		return fmt.Errorf("update credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM channel_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete channel account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTenantAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.ChannelAccount, error) {
	rows, err := s.db.Query(ctx,
		`DELETE FROM channel_accounts WHERE tenant_id = $1
		 RETURNING `+accountColumns, tenantID)
	if err != nil {
		return nil, fmt.Errorf("delete tenant accounts: %w", err)
	}
	defer rows.Close()

	var removed []models.ChannelAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deleted account: %w", err)
		}
		removed = append(removed, *a)
	}
	return removed, rows.Err()
}
