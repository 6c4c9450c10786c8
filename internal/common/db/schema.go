package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	UsersUsernameConstraint = "users_username_key"
	UsersEmailConstraint    = "users_email_key"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema applies the idempotent schema. Versioned migrations are
// managed outside the application; this covers fresh and test databases.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
