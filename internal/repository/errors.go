package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when a write collides with a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

func isUniqueViolation(err error) bool {
	return hasSQLState(err, uniqueViolation)
}

// isMalformedID reports whether Postgres rejected a bound identifier as not
// being a valid uuid. Such an id can never match a row.
func isMalformedID(err error) bool {
	return hasSQLState(err, invalidTextRepresentation)
}

// isNoRows folds malformed identifiers into sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || isMalformedID(err)
}

func hasSQLState(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == code
	}
	return false
}
