package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"clubgov/apperr"
)

// storeErr wraps driver failures in the core's taxonomy. Unique-key
// violations surface as validation errors (they mean the caller tried to
// store a duplicate, e.g. a repeated option index), everything else is a
// transient store error the caller may retry.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return apperr.Validation("duplicate_row", "row already exists", err)
	}
	return apperr.Store("store_error", "postgres operation failed", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
