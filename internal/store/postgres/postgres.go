// Package postgres is the pgx-backed store implementation.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const uniqueViolation = "23505"

// mapUnique translates a unique-constraint violation into the matching
// sentinel, falling back to the raw error.
func mapUnique(err error, byConstraint map[string]error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if mapped, ok := byConstraint[pgErr.ConstraintName]; ok {
			return mapped
		}
	}
	return err
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	return err
}
