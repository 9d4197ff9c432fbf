// Command stream-bot is the entrypoint for the Twitch chat bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Optionally connects to Postgres and runs migrations for the event log mirror.
//   - Joins the channel's chat and routes messages to polls and commands.
//   - Sends periodic reminders.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/onnwee/stream-bot/chat"
	"github.com/onnwee/stream-bot/commands"
	"github.com/onnwee/stream-bot/config"
	"github.com/onnwee/stream-bot/db"
	"github.com/onnwee/stream-bot/eventlog"
	"github.com/onnwee/stream-bot/poll"
	"github.com/onnwee/stream-bot/reminder"
	"github.com/onnwee/stream-bot/server"
	"github.com/onnwee/stream-bot/telemetry"
	"github.com/onnwee/stream-bot/twitchapi"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat))
	slog.Info("logger initialized", slog.String("level", cfg.LogLevel), slog.String("format", cfg.LogFormat))

	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("chat configuration incomplete", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdown, err := telemetry.InitTracing("stream-bot", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("bot exited with error", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

// newLogger builds the process logger. Unknown levels fall back to info and
// unknown formats to text.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	database, err := openDatabase(ctx, cfg.DBDsn)
	if err != nil {
		return err
	}
	if database != nil {
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
	}

	writer, err := newEventLog(cfg, database)
	if err != nil {
		return err
	}
	go writer.Run(ctx)

	client := chat.NewClient(chat.Options{
		Channel:    cfg.TwitchChannel,
		Username:   cfg.TwitchBotUsername,
		OAuthToken: cfg.TwitchOAuthToken,
		RateLimit:  cfg.ChatRateLimit,
		RateWindow: cfg.ChatRateWindow,
	})

	engine := poll.NewEngine(poll.Options{
		Channel:   cfg.TwitchChannel,
		Duration:  cfg.PollDuration,
		Announcer: client,
		Sink:      writer,
	})

	deps := commands.BuiltinDeps{Channel: cfg.TwitchChannel, Polls: engine}
	if cfg.HelixEnabled() {
		deps.Info = &twitchapi.Provider{
			Helix: &twitchapi.HelixClient{
				AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
				ClientID:       cfg.TwitchClientID,
				UserToken:      cfg.TwitchUserToken,
				HTTPClient:     &http.Client{Timeout: cfg.LookupTimeout},
			},
			Channel:       cfg.TwitchChannel,
			BroadcasterID: cfg.TwitchBroadcasterID,
		}
	} else {
		slog.Info("helix lookups disabled (missing TWITCH_CLIENT_ID/TWITCH_CLIENT_SECRET)")
	}
	registry := commands.NewRegistry()
	if err := commands.RegisterBuiltins(registry, deps); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	dispatcher := commands.NewDispatcher(commands.DispatcherOptions{
		Registry: registry,
		Ballots:  engine,
		ChatLog:  writer,
		Sender:   client,
		Timeout:  cfg.LookupTimeout,
	})
	client.OnMessage(func(msg chat.Message) { dispatcher.Handle(ctx, msg) })

	go (&reminder.Scheduler{
		Sender:   client,
		Channel:  cfg.TwitchChannel,
		Interval: cfg.ReminderInterval,
		Messages: cfg.ReminderMessages,
	}).Run(ctx)

	if cfg.EnablePprof {
		go servePprof(cfg.PprofAddr)
	}

	go func() {
		err := server.Start(ctx, server.Deps{
			DB:        database,
			Chat:      client,
			Polls:     engine,
			CORS:      server.CORSConfig{Permissive: cfg.CORSPermissive, AllowedOrigins: cfg.CORSAllowedOrigins},
			RateLimit: server.RateLimitConfig{PerSecond: cfg.StatusRateLimit, Burst: cfg.StatusRateBurst},
		}, cfg.HTTPAddr)
		if err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	slog.Info("starting chat", slog.String("channel", cfg.TwitchChannel), slog.String("component", "chat"))
	chatErr := client.Run(ctx)
	cancel()

	select {
	case <-writer.Done():
	case <-time.After(10 * time.Second):
		slog.Warn("event log flush timed out", slog.String("component", "eventlog"))
	}
	return chatErr
}

// openDatabase returns nil when no DSN is configured. Versioned migrations run
// first; the embedded DDL is the fallback for databases golang-migrate cannot manage.
func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		slog.Info("postgres disabled (DB_DSN not set)")
		return nil, nil
	}
	database, err := db.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, falling back to embedded SQL", slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(ctx, database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("migrate db: %w", err)
		}
	}
	return database, nil
}

// newEventLog wires the JSONL files plus the optional Postgres and Redis mirrors.
func newEventLog(cfg *config.Config, database *sql.DB) (*eventlog.Writer, error) {
	files, err := eventlog.NewFileBackend(cfg.ChatLogPath, cfg.PollLogPath)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	backends := []eventlog.Backend{files}
	if database != nil {
		backends = append(backends, eventlog.NewPostgresBackend(database))
	}
	if cfg.RedisURL != "" {
		rb, err := eventlog.NewRedisBackend(cfg.RedisURL, cfg.RedisStreamPrefix)
		if err != nil {
			slog.Warn("redis event log disabled", slog.Any("err", err), slog.String("component", "eventlog"))
		} else {
			backends = append(backends, rb)
		}
	}
	names := make([]string, 0, len(backends))
	for _, b := range backends {
		names = append(names, b.Name())
	}
	slog.Info("event log backends", slog.Any("backends", names), slog.String("component", "eventlog"))
	return eventlog.NewWriter(0, backends...), nil
}

func servePprof(addr string) {
	slog.Info("pprof profiling enabled", slog.String("addr", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil, // default mux exposes /debug/pprof
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("pprof server error", slog.Any("err", err))
	}
}
