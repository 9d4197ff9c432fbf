package eventlog

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresBackend mirrors records into the chat_messages and poll_results tables.
// The schema is owned by the db package migrations.
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend writes to the chat_messages and poll_results tables of db.
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) WriteChat(ctx context.Context, rec ChatMessage) error {
	_, err := b.db.ExecContext(ctx, `INSERT INTO chat_messages (channel, user_id, username, display_name, message, sent_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.Channel, rec.UserID, rec.Username, rec.DisplayName, rec.Message, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (b *PostgresBackend) WritePollResult(ctx context.Context, rec PollResult) error {
	_, err := b.db.ExecContext(ctx, `INSERT INTO poll_results (poll_id, question, yes_votes, no_votes, winner, total_votes, started_at, ended_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ON CONFLICT (poll_id) DO NOTHING`,
		rec.PollID, rec.Question, rec.Tally.Yes, rec.Tally.No, rec.Winner, rec.TotalVotes, rec.StartedAt, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert poll result: %w", err)
	}
	return nil
}

// Close is a no-op; the *sql.DB is owned by main.
func (b *PostgresBackend) Close() error { return nil }
