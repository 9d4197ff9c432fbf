// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommandsHandled     *prometheus.CounterVec // by command
	VotesTotal          *prometheus.CounterVec // by result: accepted|duplicate|no_poll
	PollsStarted        prometheus.Counter
	PollsCompleted      *prometheus.CounterVec // by winner
	ProviderErrors      *prometheus.CounterVec // by endpoint
	SinkWriteFailures   *prometheus.CounterVec // by backend
	SinkDropped         prometheus.Counter
	ChatMessagesSent    prometheus.Counter
	ChatMessagesDropped prometheus.Counter
	RemindersSent       prometheus.Counter

	// Histograms (seconds)
	HelixRequestDuration prometheus.Observer
	CommandDuration      prometheus.Observer

	// Gauges
	PollActiveGauge prometheus.Gauge // 1=poll running,0=idle
	ChatConnected   prometheus.Gauge
	CircuitState    *prometheus.GaugeVec // 0=closed,1=half-open,2=open

	CircuitStateChanges *prometheus.CounterVec // by breaker, to
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_commands_handled_total", Help: "Chat commands executed, by command"}, []string{"command"})
		VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_poll_votes_total", Help: "Poll ballots received, by result"}, []string{"result"})
		PollsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_polls_started_total", Help: "Number of polls started"})
		PollsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_polls_completed_total", Help: "Number of polls completed, by winner"}, []string{"winner"})
		ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_provider_errors_total", Help: "Failed info provider lookups, by endpoint"}, []string{"endpoint"})
		SinkWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_eventlog_write_failures_total", Help: "Event log write failures, by backend"}, []string{"backend"})
		SinkDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_eventlog_dropped_total", Help: "Event log records dropped because the queue was full"})
		ChatMessagesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_chat_messages_sent_total", Help: "Outbound chat messages sent"})
		ChatMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_chat_messages_dropped_total", Help: "Outbound chat messages dropped because the queue was full"})
		RemindersSent = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_reminders_sent_total", Help: "Reminder messages sent"})
		HelixRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_helix_request_duration_seconds", Help: "Helix request duration seconds", Buckets: prometheus.DefBuckets})
		CommandDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_command_duration_seconds", Help: "Command handler duration seconds", Buckets: prometheus.DefBuckets})
		PollActiveGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_poll_active", Help: "Poll running=1 idle=0"})
		ChatConnected = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_chat_connected", Help: "Chat connection up=1 down=0"})
		CircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "bot_circuit_state", Help: "Circuit breaker state closed=0 half-open=1 open=2"}, []string{"breaker"})
		CircuitStateChanges = promauto.NewCounterVec(prometheus.CounterOpts{Name: "bot_circuit_state_changes_total", Help: "Circuit breaker transitions"}, []string{"breaker", "to"})
	})
}

// The helpers below are safe to call before Init; they no-op until metrics are registered.

func IncCommand(name string) {
	if CommandsHandled != nil {
		CommandsHandled.WithLabelValues(name).Inc()
	}
}

func IncVote(result string) {
	if VotesTotal != nil {
		VotesTotal.WithLabelValues(result).Inc()
	}
}

func IncPollStarted() {
	if PollsStarted != nil {
		PollsStarted.Inc()
	}
}

func IncPollCompleted(winner string) {
	if PollsCompleted != nil {
		PollsCompleted.WithLabelValues(winner).Inc()
	}
}

func IncProviderError(endpoint string) {
	if ProviderErrors != nil {
		ProviderErrors.WithLabelValues(endpoint).Inc()
	}
}

func IncSinkFailure(backend string) {
	if SinkWriteFailures != nil {
		SinkWriteFailures.WithLabelValues(backend).Inc()
	}
}

func IncSinkDropped() {
	if SinkDropped != nil {
		SinkDropped.Inc()
	}
}

func IncChatSent() {
	if ChatMessagesSent != nil {
		ChatMessagesSent.Inc()
	}
}

func IncChatDropped() {
	if ChatMessagesDropped != nil {
		ChatMessagesDropped.Inc()
	}
}

func IncReminderSent() {
	if RemindersSent != nil {
		RemindersSent.Inc()
	}
}

// SetPollActive sets gauge to 1 while a poll is running else 0.
func SetPollActive(active bool) { setBool(PollActiveGauge, active) }

// SetChatConnected records the chat connection state.
func SetChatConnected(up bool) { setBool(ChatConnected, up) }

// RecordCircuitStateChange updates the breaker gauge and transition counter.
// state is one of closed, half-open, open; anything else is ignored.
func RecordCircuitStateChange(breaker, state string) {
	var v float64
	switch state {
	case "closed":
		v = 0
	case "half-open":
		v = 1
	case "open":
		v = 2
	default:
		return
	}
	if CircuitState != nil {
		CircuitState.WithLabelValues(breaker).Set(v)
	}
	if CircuitStateChanges != nil {
		CircuitStateChanges.WithLabelValues(breaker, state).Inc()
	}
}

func setBool(g prometheus.Gauge, v bool) {
	if g == nil {
		return
	}
	if v {
		g.Set(1)
	} else {
		g.Set(0)
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
