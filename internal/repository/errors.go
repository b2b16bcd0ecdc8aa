package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes that signal a lost race rather than a bad request.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

const orderNumberConstraint = "orders_order_number_key"

// IsRetryable reports whether err is a write conflict that a fresh attempt of
// the whole transaction can resolve: a duplicate order number, a
// serialization failure or a deadlock.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected:
		return true
	case pgUniqueViolation:
		return pgErr.ConstraintName == orderNumberConstraint
	}

	return false
}
