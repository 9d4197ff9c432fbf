// Package eventlog is the bot's append-only record sink. Chat messages and poll
// results are written as line-delimited JSON and optionally mirrored into
// Postgres tables and Redis streams. Writes are asynchronous: callers enqueue a
// record and move on, failures are logged and counted but never reach chat.
package eventlog

import (
	"context"
	"time"
)

// ChatMessage is one inbound chat line.
type ChatMessage struct {
	Timestamp   time.Time `json:"timestamp"`
	Channel     string    `json:"channel"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Message     string    `json:"message"`
}

// Tally is the final vote count of a poll.
type Tally struct {
	No  int `json:"no"`
	Yes int `json:"yes"`
}

// PollResult is written once per poll when it expires.
type PollResult struct {
	Timestamp  time.Time `json:"timestamp"`
	PollID     string    `json:"poll_id"`
	Question   string    `json:"question"`
	Tally      Tally     `json:"tally"`
	Winner     string    `json:"winner"`
	TotalVotes int       `json:"total_votes"`
	StartedAt  time.Time `json:"started_at"`
}

// Backend persists records. Implementations must be safe for use by a single writer goroutine.
type Backend interface {
	Name() string
	WriteChat(ctx context.Context, rec ChatMessage) error
	WritePollResult(ctx context.Context, rec PollResult) error
	Close() error
}
