package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/models"
)

func (s *Store) CreateCode(ctx context.Context, c *models.OneTimeCode) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO one_time_codes (user_id, channel, code_hash, salt, expires_at, used)
		 VALUES ($1, $2, $3, $4, $5, FALSE)
		 RETURNING id, created_at`,
		c.UserID, c.Channel, c.CodeHash, c.Salt, c.ExpiresAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert code: %w", err)
	}
	return nil
}

func (s *Store) LatestCode(ctx context.Context, userID uuid.UUID, channel models.CodeChannel) (*models.OneTimeCode, error) {
	var c models.OneTimeCode
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, channel, code_hash, salt, expires_at, used, created_at
		 FROM one_time_codes
		 WHERE user_id = $1 AND channel = $2
		 ORDER BY created_at DESC LIMIT 1`,
		userID, channel,
	).Scan(&c.ID, &c.UserID, &c.Channel, &c.CodeHash, &c.Salt, &c.ExpiresAt, &c.Used, &c.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &c, nil
}

// ConsumeCode is a single-statement compare-and-set: of N concurrent
// callers exactly one sees a row flip from unused to used.
func (s *Store) ConsumeCode(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE one_time_codes SET used = TRUE WHERE id = $1 AND used = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("consume code: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) InvalidateCodes(ctx context.Context, userID uuid.UUID, channel models.CodeChannel) error {
	_, err := s.db.Exec(ctx,
		`UPDATE one_time_codes SET used = TRUE
		 WHERE user_id = $1 AND channel = $2 AND used = FALSE`,
		userID, channel,
	)
	if err != nil {
		return fmt.Errorf("invalidate codes: %w", err)
	}
	return nil
}
