// Package db provides the Postgres connection helper and schema migrations for
// the optional database mirror of the event log.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Connect opens a Postgres pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("db dsn empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies idempotent schema changes for all required tables and indices.
// It is the fallback when versioned migrations cannot run.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			channel TEXT NOT NULL,
			user_id TEXT,
			username TEXT NOT NULL,
			display_name TEXT,
			message TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS poll_results (
			id BIGSERIAL PRIMARY KEY,
			poll_id UUID NOT NULL UNIQUE,
			question TEXT NOT NULL,
			yes_votes INTEGER NOT NULL DEFAULT 0 CHECK (yes_votes >= 0),
			no_votes INTEGER NOT NULL DEFAULT 0 CHECK (no_votes >= 0),
			winner TEXT NOT NULL CHECK (winner IN ('YES', 'NO', 'TIE')),
			total_votes INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ,
			ended_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_channel_sent ON chat_messages(channel, sent_at)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_user ON chat_messages(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_poll_results_ended ON poll_results(ended_at)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}
