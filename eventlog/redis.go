package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// streamMaxLen caps each Redis stream; older entries are trimmed approximately.
const streamMaxLen = 10000

// RedisBackend publishes records to two Redis streams (<prefix>:chat, <prefix>:polls)
// so overlays and other consumers can follow the bot live.
type RedisBackend struct {
	rdb    *goredis.Client
	prefix string
}

// NewRedisBackend parses a redis:// URL and returns a backend using it.
func NewRedisBackend(url, prefix string) (*RedisBackend, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisBackendFromClient(goredis.NewClient(opts), prefix), nil
}

// NewRedisBackendFromClient wraps an existing client; an empty prefix selects "streambot".
func NewRedisBackendFromClient(rdb *goredis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "streambot"
	}
	return &RedisBackend{rdb: rdb, prefix: prefix}
}

func (b *RedisBackend) Name() string { return "redis" }

// ChatStream returns the stream key chat records are added to.
func (b *RedisBackend) ChatStream() string { return b.prefix + ":chat" }

// PollStream returns the stream key poll results are added to.
func (b *RedisBackend) PollStream() string { return b.prefix + ":polls" }

func (b *RedisBackend) WriteChat(ctx context.Context, rec ChatMessage) error {
	return b.add(ctx, b.ChatStream(), rec)
}

func (b *RedisBackend) WritePollResult(ctx context.Context, rec PollResult) error {
	return b.add(ctx, b.PollStream(), rec)
}

func (b *RedisBackend) add(ctx context.Context, stream string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	err = b.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{"payload": string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

func (b *RedisBackend) Close() error { return b.rdb.Close() }
