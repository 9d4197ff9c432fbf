package db

import (
	"context"
	"database/sql"
	"os"
	"testing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping migration test")
	}
	db, err := Connect(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	cleanDatabase(t, context.Background(), db)
	return db
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_name = $1
	)`, table).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check table %s: %v", table, err)
	}
	return exists
}

// TestRunMigrations tests that migrations can be applied to an empty database
func TestRunMigrations(t *testing.T) {
	db := openTestDB(t)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	for _, table := range []string{"chat_messages", "poll_results"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s does not exist after migration", table)
		}
	}

	version, dirty, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatalf("GetMigrationVersion() error = %v", err)
	}
	if dirty {
		t.Errorf("migration version is dirty")
	}
	if version < 1 {
		t.Errorf("migration version = %d, want >= 1", version)
	}

	// Second run is a no-op.
	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() second run error = %v", err)
	}
}

func TestMigrationUpDown(t *testing.T) {
	db := openTestDB(t)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	if err := MigrateDown(db); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "poll_results") {
		t.Error("poll_results still exists after rollback")
	}
	version, _, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatalf("GetMigrationVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("version after rollback = %d, want 0", version)
	}
}

func TestMigrationWithData(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	_, err := db.ExecContext(ctx, `INSERT INTO poll_results (poll_id, question, yes_votes, no_votes, winner, total_votes, ended_at)
		VALUES ('8d3c1a7e-6c55-4a43-9c1c-0d5f1d9d9a01', 'pizza?', 2, 1, 'YES', 3, NOW())`)
	if err != nil {
		t.Fatalf("insert poll result: %v", err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO poll_results (poll_id, question, winner, ended_at)
		VALUES ('8d3c1a7e-6c55-4a43-9c1c-0d5f1d9d9a02', 'bad', 'MAYBE', NOW())`)
	if err == nil {
		t.Error("winner constraint not enforced")
	}
	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() rerun error = %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM poll_results`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("poll_results rows = %d, want 1", n)
	}
}

// cleanDatabase drops all tables and the schema_migrations table to start fresh
func cleanDatabase(t *testing.T, ctx context.Context, db *sql.DB) {
	t.Helper()
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS poll_results CASCADE`,
		`DROP TABLE IF EXISTS chat_messages CASCADE`,
		`DROP TABLE IF EXISTS schema_migrations CASCADE`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("clean database: %v", err)
		}
	}
}
