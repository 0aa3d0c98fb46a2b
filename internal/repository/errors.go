package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrConstraintViolation = errors.New("constraint violation")
)

// PostgreSQL error codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgForeignKeyViolation = "23503"
)

// isUniqueViolation works for both SQLite and PostgreSQL
func isUniqueViolation(err error) bool {
	return matchesConstraint(err, pgUniqueViolation, "UNIQUE constraint failed")
}

// isUniqueViolationOn narrows isUniqueViolation to constraints covering column.
func isUniqueViolationOn(err error, column string) bool {
	if !isUniqueViolation(err) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.Contains(pgErr.ConstraintName, column)
	}

	return strings.Contains(err.Error(), "."+column)
}

// isIntegrityViolation reports CHECK and FOREIGN KEY failures raised by the schema.
func isIntegrityViolation(err error) bool {
	return matchesConstraint(err, pgCheckViolation, "CHECK constraint failed") ||
		matchesConstraint(err, pgForeignKeyViolation, "FOREIGN KEY constraint failed")
}

func matchesConstraint(err error, pgCode, sqliteMessage string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCode
	}

	return strings.Contains(err.Error(), sqliteMessage)
}
