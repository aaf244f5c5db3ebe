package repository

import (
	"database/sql"
	"errors"
	"slices"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories branch on.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// MapError turns sql.ErrNoRows into notFound and a unique violation into
// duplicate. Anything else is returned as is.
func MapError(err error, notFound, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	case IsCode(err, codeUniqueViolation):
		return duplicate
	default:
		return err
	}
}

func IsForeignKeyViolation(err error) bool {
	return IsCode(err, codeForeignKeyViolation)
}

// IsRetryable reports a serialization failure or deadlock, after which the
// whole transaction may be rerun.
func IsRetryable(err error) bool {
	return IsCode(err, codeSerializationFailure, codeDeadlockDetected)
}

// IsCode reports whether err wraps a Postgres error with any of codes.
func IsCode(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && slices.Contains(codes, pgErr.Code)
}
