package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/onnwee/stream-bot/poll"
	"github.com/onnwee/stream-bot/telemetry"
)

// Handlers contains the HTTP handlers and their dependencies.
type Handlers struct {
	deps  Deps
	clock clockwork.Clock
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handlers{deps: deps, clock: clock}
}

// HandleHealthz responds to liveness probes. With a database configured it
// must also answer a ping.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.DB != nil {
		if err := h.deps.DB.PingContext(r.Context()); err != nil {
			telemetry.LoggerWithCorr(r.Context()).Warn("healthz db ping failed", slog.Any("err", err), slog.String("component", "http"))
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports ready once chat is joined and the database answers.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	type check struct {
		name string
		fn   func() error
	}
	var checks []check
	if h.deps.Chat != nil {
		checks = append(checks, check{"chat", func() error {
			if !h.deps.Chat.Connected() {
				return errors.New("chat not connected")
			}
			return nil
		}})
	}
	if h.deps.DB != nil {
		checks = append(checks, check{"database", func() error { return h.deps.DB.PingContext(r.Context()) }})
	}

	for _, c := range checks {
		if err := c.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": c.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusResponse is the /status body. Poll is omitted while no poll is open.
type statusResponse struct {
	Active           bool           `json:"active"`
	Poll             *poll.Snapshot `json:"poll,omitempty"`
	RemainingSeconds int            `json:"remaining_seconds,omitempty"`
}

// HandleStatus returns the active poll and the seconds left before it closes.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := statusResponse{}
	if h.deps.Polls != nil {
		if snap, ok := h.deps.Polls.Snapshot(); ok {
			resp.Active = true
			resp.Poll = &snap
			if left := snap.ExpiresAt.Sub(h.clock.Now()).Seconds(); left > 0 {
				resp.RemainingSeconds = int(math.Ceil(left))
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err))
	}
}
