// Package server exposes the bot's HTTP surface: liveness and readiness probes,
// the active poll as JSON for overlays, and Prometheus metrics. Requests carry
// a correlation ID in their context for consistent logging.
package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/stream-bot/poll"
)

// ChatStatus reports whether the chat transport is joined.
type ChatStatus interface {
	Connected() bool
}

// PollStatus exposes the active poll, if any.
type PollStatus interface {
	Snapshot() (poll.Snapshot, bool)
}

// Deps are the collaborators behind the HTTP handlers. DB and Chat are optional;
// the checks that need them are skipped when nil.
type Deps struct {
	DB    *sql.DB
	Chat  ChatStatus
	Polls PollStatus
	Clock clockwork.Clock

	CORS      CORSConfig
	RateLimit RateLimitConfig
}

// NewMux returns the HTTP handler with all routes. ctx bounds the rate limiter's
// cleanup goroutine.
func NewMux(ctx context.Context, deps Deps) http.Handler {
	h := NewHandlers(deps)
	limiter := newIPRateLimiter(ctx, deps.RateLimit)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/readyz", h.HandleReadyz)
	mux.Handle("/status", rateLimitMiddleware(http.HandlerFunc(h.HandleStatus), limiter))

	return withCORS(withObservability(mux), deps.CORS)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, deps Deps, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serve(ctx, deps, ln)
}

func serve(ctx context.Context, deps Deps, ln net.Listener) error {
	srv := &http.Server{
		Handler:      NewMux(ctx, deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", ln.Addr().String()), slog.String("component", "http"))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
