package adapters

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes shared by all PostgreSQL drivers.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// IsSerializationFailure reports whether err is a serialization failure or a
// deadlock, no matter which driver produced it. Transactions failing this way
// lost a race against a concurrent writer and are safe to retry.
func IsSerializationFailure(err error) bool {
	code, ok := sqlStateOf(err)

	return ok && (code == codeSerializationFailure || code == codeDeadlockDetected)
}

// IsUniqueViolation reports whether err is a unique constraint violation,
// no matter which driver produced it.
func IsUniqueViolation(err error) bool {
	code, ok := sqlStateOf(err)

	return ok && code == codeUniqueViolation
}

func sqlStateOf(err error) (string, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}

	return "", false
}
