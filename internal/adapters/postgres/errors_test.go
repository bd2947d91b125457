package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestAsPgError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: UniqueViolationCode, ConstraintName: "trips_pkey"})
	pe, ok := AsPgError(wrapped)
	if assert.True(t, ok) {
		assert.Equal(t, UniqueViolationCode, pe.Code)
		assert.Equal(t, "trips_pkey", pe.ConstraintName)
	}

	_, ok = AsPgError(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsUnavailable(t *testing.T) {
	t.Parallel()

	assert.False(t, IsUnavailable(nil))
	assert.False(t, IsUnavailable(&pgconn.PgError{Code: CheckViolationCode}))
	assert.False(t, IsUnavailable(context.Canceled))
	assert.False(t, IsUnavailable(errors.New("syntax")))

	assert.True(t, IsUnavailable(io.EOF))
	assert.True(t, IsUnavailable(fmt.Errorf("query: %w", io.ErrUnexpectedEOF)))
	assert.True(t, IsUnavailable(context.DeadlineExceeded))
}
