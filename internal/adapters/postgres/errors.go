package postgres

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	UniqueViolationCode     = "23505"
	ForeignKeyViolationCode = "23503"
	CheckViolationCode      = "23514"
)

func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsUnavailable reports whether err means the database could not be reached,
// as opposed to the database rejecting the statement.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := AsPgError(err); ok {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ce *pgconn.ConnectError
	if errors.As(err, &ce) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
