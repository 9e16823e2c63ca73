// Package storage recognizes the failure signatures of the Postgres backing
// store and translates them into the error values the reconciliation engine
// branches on.
package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUnreachable means the store could not serve the request. Callers in
	// the payer flow degrade instead of failing.
	ErrUnreachable = errors.New("store unreachable")

	// ErrNotFound means the query ran and matched no row.
	ErrNotFound = errors.New("record not found")

	// ErrConflict means a unique constraint rejected the write.
	ErrConflict = errors.New("unique constraint violated")
)

// Postgres SQLSTATE codes the classifier cares about.
const (
	codeUniqueViolation    = "23505"
	codeUndefinedFunction  = "42883"
	codeUndefinedObject    = "42704"
	codeAdminShutdown      = "57P01"
	codeCrashShutdown      = "57P02"
	codeCannotConnectNow   = "57P03"
	codeTooManyConnections = "53300"
)

// Classify wraps err so that errors.Is matches ErrUnreachable, ErrNotFound or
// ErrConflict when the underlying failure carries one of the recognized
// signatures. op names the operation for the error message. A nil err stays nil.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case IsUnreachable(err):
		return fmt.Errorf("%s: %w: %w", op, ErrUnreachable, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// IsUnreachable reports whether err is one of the "store unreachable"
// signatures: connection loss, a call that ran past its deadline, or a
// backend function the server does not have.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrUnreachable) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUndefinedFunction, codeUndefinedObject,
			codeAdminShutdown, codeCrashShutdown, codeCannotConnectNow, codeTooManyConnections:
			return true
		}

		// Class 08: connection exception.
		return strings.HasPrefix(pgErr.Code, "08")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return pgconn.Timeout(err)
}

// ConstraintName returns the constraint that rejected a unique write, or ""
// when err is not a unique violation.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return pgErr.ConstraintName
	}

	return ""
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
