package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrCaseExists is returned when a report is already linked to a case.
	ErrCaseExists = errors.New("report already has a case")
	// ErrCaseResolved is returned when resolving a case twice.
	ErrCaseResolved = errors.New("case already resolved")
	// ErrInvalidTransition is returned when a report is not in the status a transition expects.
	ErrInvalidTransition = errors.New("invalid report status transition")
	// ErrEvidenceLimit is returned when a report already holds the maximum evidence count.
	ErrEvidenceLimit = errors.New("evidence limit reached")
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("duplicate record")
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// IsInvalidInput reports whether Postgres rejected a parameter it could not
// parse, such as a malformed UUID in a WHERE clause.
func IsInvalidInput(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
