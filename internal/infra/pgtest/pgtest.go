// Package pgtest opens the Postgres database used by store tests.
package pgtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"lifelink/internal/infra"
)

// DSNEnv names the variable that enables Postgres-backed tests.
const DSNEnv = "LIFELINK_TEST_DSN"

// Open connects to the test database, applies the schema and truncates
// the given tables. The test is skipped when LIFELINK_TEST_DSN is unset.
func Open(t testing.TB, truncate ...string) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skip(DSNEnv + " not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	root, err := infra.RepoRoot()
	if err != nil {
		t.Fatalf("locate repo root: %v", err)
	}
	if err := infra.ApplyMigration(ctx, db, filepath.Join(root, "migrations", "0001_init.sql")); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	for _, table := range truncate {
		if _, err := db.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return db
}
