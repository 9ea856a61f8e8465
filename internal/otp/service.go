// Package otp issues and verifies short-lived single-use verification
// codes for email and phone ownership checks. Issuing a new code
// invalidates prior unused codes for the same (user, channel), so at most
// one code is live per pair; consuming a code is a store-level
// compare-and-set, so of N concurrent verifications exactly one wins.
package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/store"
)

type Options struct {
	Digits   int
	TTL      time.Duration
	Cooldown time.Duration
}

type Service struct {
	store  store.Store
	sender Sender
	opts   Options
	logger *slog.Logger

	now func() time.Time
}

func NewService(st store.Store, sender Sender, opts Options, logger *slog.Logger) *Service {
	if opts.Digits <= 0 {
		opts.Digits = 6
	}
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		sender: sender,
		opts:   opts,
		logger: logger.With("component", "otp"),
		now:    time.Now,
	}
}

// Issue generates a fresh code for (user, channel), hands the raw code to
// the delivery collaborator and returns it. Prior unused codes for the
// pair are invalidated first. Re-issuing within the cooldown window fails
// with ErrTooSoon.
func (s *Service) Issue(ctx context.Context, userID uuid.UUID, channel models.CodeChannel) (string, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	if s.opts.Cooldown > 0 {
		latest, err := s.store.LatestCode(ctx, userID, channel)
		if err == nil && s.now().Sub(latest.CreatedAt) < s.opts.Cooldown {
			return "", errs.ErrTooSoon
		} else if err != nil && !errors.Is(err, errs.ErrNotFound) {
			return "", fmt.Errorf("check cooldown: %w", err)
		}
	}

	if err := s.store.InvalidateCodes(ctx, userID, channel); err != nil {
		return "", fmt.Errorf("invalidate prior codes: %w", err)
	}

	code, err := randomCode(s.opts.Digits)
	if err != nil {
		return "", err
	}
	salt, err := newSalt()
	if err != nil {
		return "", err
	}

	record := &models.OneTimeCode{
		UserID:    userID,
		Channel:   channel,
		CodeHash:  hashCode(salt, code),
		Salt:      salt,
		ExpiresAt: s.now().Add(s.opts.TTL),
	}
	if err := s.store.CreateCode(ctx, record); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}

	if s.sender != nil {
		// Delivery failures are surfaced to the operator, not the caller:
		// the code is live and a resend is gated by the cooldown anyway.
		if err := s.sender.Send(ctx, user, channel, code); err != nil {
			s.logger.Error("code delivery failed", "user_id", userID, "channel", channel, "error", err)
		}
	}
	return code, nil
}

// Verify checks the submitted code against the latest one for the pair
// and, on success, consumes it and flips the user's verification flag.
// Expiry is checked before the hash so an expired code never reports
// ErrCodeMismatch.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, channel models.CodeChannel, submitted string) error {
	record, err := s.store.LatestCode(ctx, userID, channel)
	if err != nil {
		return err
	}
	if s.now().After(record.ExpiresAt) {
		return errs.ErrExpired
	}
	if record.Used {
		return errs.ErrAlreadyUsed
	}
	if !codeMatches(record.Salt, submitted, record.CodeHash) {
		return errs.ErrCodeMismatch
	}

	won, err := s.store.ConsumeCode(ctx, record.ID)
	if err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	if !won {
		return errs.ErrAlreadyUsed
	}

	if err := s.store.SetUserVerified(ctx, userID, channel); err != nil {
		return fmt.Errorf("set verified flag: %w", err)
	}
	s.logger.Info("verification succeeded", "user_id", userID, "channel", channel)
	return nil
}
