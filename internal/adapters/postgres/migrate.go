package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/0001_init.sql
var initSchema string

// Migrate applies the schema. Every statement is idempotent, so it is safe to run on each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, initSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
