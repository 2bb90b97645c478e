package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// NewSQLite opens a fresh file database in a temp dir and applies migrations.
// A single connection is used, so queries inside a transaction must go through it.
func NewSQLite(t testing.TB, migrations ...string) *sqlx.DB {
	t.Helper()

	sqlx.BindDriver("sqlite", sqlx.QUESTION)

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"

	db, err := sqlx.Connect("sqlite", dsn)
	require.NoError(t, err)

	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, MigrateFromFile(db, migrations...))

	return db
}
