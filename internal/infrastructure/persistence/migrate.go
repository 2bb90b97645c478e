package persistence

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate создаёт таблицы сделок, если их ещё нет. driver — "postgres" или "sqlite".
func Migrate(ctx context.Context, db *sqlx.DB, driver string) error {
	script, err := migrations.ReadFile("migrations/" + driver + ".sql")
	if err != nil {
		return fmt.Errorf("migrations.ReadFile: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}

	return nil
}
