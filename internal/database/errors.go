package database

import (
	"errors"

	"github.com/lib/pq"
)

// ErrVersionConflict is returned when an optimistic write loses the race:
// the row's version no longer matches the one the caller read.
var ErrVersionConflict = errors.New("version conflict")

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally on a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
