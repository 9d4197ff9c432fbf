// Package config loads environment variables and provides a typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required chat credentials, use ValidateChatReady.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// DefaultReminders is used when REMINDER_MESSAGES is unset.
var DefaultReminders = []string{
	"Enjoying the stream? Hit follow so you don't miss the next one!",
	"Type !commands to see everything the bot can do.",
	"Got an opinion? Polls pop up during the stream, vote with 1 (yes) or 0 (no).",
	"Be kind in chat, everyone is here to have a good time.",
}

type Config struct {
	// Twitch chat (IRC)
	TwitchChannel     string `env:"TWITCH_CHANNEL"`
	TwitchBotUsername string `env:"TWITCH_BOT_USERNAME"`
	TwitchOAuthToken  string `env:"TWITCH_OAUTH_TOKEN"`

	// Twitch Helix
	TwitchClientID      string `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret  string `env:"TWITCH_CLIENT_SECRET"`
	TwitchBroadcasterID string `env:"TWITCH_BROADCASTER_ID"`
	// TwitchUserToken is a broadcaster/moderator token; /channels/followers rejects app tokens.
	TwitchUserToken string        `env:"TWITCH_USER_TOKEN"`
	LookupTimeout   time.Duration `env:"LOOKUP_TIMEOUT" default:"5s"`

	// Outbound chat rate limit: ChatRateLimit messages per ChatRateWindow.
	ChatRateLimit  int           `env:"CHAT_RATE_LIMIT" default:"20"`
	ChatRateWindow time.Duration `env:"CHAT_RATE_WINDOW" default:"30s"`

	// Poll
	PollDuration time.Duration `env:"POLL_DURATION" default:"30s"`

	// Reminders
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" default:"10m"`
	ReminderMessages []string      `env:"REMINDER_MESSAGES"`

	// Event log
	ChatLogPath       string `env:"CHAT_LOG_PATH" default:"data/chat_log.jsonl"`
	PollLogPath       string `env:"POLL_LOG_PATH" default:"data/poll_results.jsonl"`
	DBDsn             string `env:"DB_DSN"`
	RedisURL          string `env:"REDIS_URL"`
	RedisStreamPrefix string `env:"REDIS_STREAM_PREFIX" default:"streambot"`

	// HTTP
	HTTPAddr string `env:"HTTP_ADDR" default:":8080"`
	// CORS for /status consumers such as browser overlays. Origins are "|" separated.
	CORSPermissive     bool     `env:"CORS_PERMISSIVE" default:"true"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
	// Per-client limit on /status, in requests per second.
	StatusRateLimit float64 `env:"STATUS_RATE_LIMIT" default:"5"`
	StatusRateBurst int     `env:"STATUS_RATE_BURST" default:"10"`

	// Profiling
	EnablePprof bool   `env:"ENABLE_PPROF"`
	PprofAddr   string `env:"PPROF_ADDR" default:"localhost:6060"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// Load reads an optional .env file and the environment, applying defaults. It doesn't fail if Twitch
// creds are missing; use ValidateChatReady() before connecting to chat. Missing optional variables
// disable features (Postgres and Redis event log backends, follower lookups).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: "|"}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// IRC and Helix both expect the bare lower-case login.
	cfg.TwitchChannel = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.TwitchChannel), "#"))
	if len(cfg.ReminderMessages) == 0 {
		cfg.ReminderMessages = append([]string(nil), DefaultReminders...)
	}
	if cfg.PollDuration <= 0 {
		return nil, fmt.Errorf("invalid POLL_DURATION %s: must be positive", cfg.PollDuration)
	}
	if cfg.ReminderInterval <= 0 {
		return nil, fmt.Errorf("invalid REMINDER_INTERVAL %s: must be positive", cfg.ReminderInterval)
	}
	if cfg.ChatRateLimit <= 0 || cfg.ChatRateWindow <= 0 {
		return nil, fmt.Errorf("invalid chat rate limit %d per %s", cfg.ChatRateLimit, cfg.ChatRateWindow)
	}
	if cfg.StatusRateLimit < 0 || cfg.StatusRateBurst < 0 {
		return nil, fmt.Errorf("invalid status rate limit %v burst %d", cfg.StatusRateLimit, cfg.StatusRateBurst)
	}
	return &cfg, nil
}

// ValidateChatReady checks the fields required to join chat.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchBotUsername == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN")
	}
	return nil
}

// HelixEnabled reports whether app credentials for Helix lookups are present.
func (c *Config) HelixEnabled() bool {
	return c.TwitchClientID != "" && c.TwitchClientSecret != ""
}
