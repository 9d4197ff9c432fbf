// Package reminder posts a randomly chosen message to chat on a fixed interval.
package reminder

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/onnwee/stream-bot/telemetry"
)

// DefaultInterval is the reminder period when none is configured.
const DefaultInterval = 10 * time.Minute

// Sender delivers outbound chat lines without blocking.
type Sender interface {
	Say(channel, text string)
}

// Scheduler posts a random reminder to Channel every Interval.
type Scheduler struct {
	Clock    clockwork.Clock // nil selects the real clock
	Sender   Sender
	Channel  string
	Interval time.Duration // <=0 selects DefaultInterval
	Messages []string
	// Pick returns an index in [0,n); nil picks uniformly at random.
	Pick func(n int) int
}

// Run sends one reminder per interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.Messages) == 0 || s.Sender == nil {
		slog.Info("reminders disabled: no messages or sender", slog.String("component", "reminder"))
		return
	}
	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	pick := s.Pick
	if pick == nil {
		pick = rand.IntN
	}

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("reminders started", slog.Duration("interval", interval), slog.Int("messages", len(s.Messages)), slog.String("component", "reminder"))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			msg := s.Messages[pick(len(s.Messages))]
			s.Sender.Say(s.Channel, msg)
			telemetry.IncReminderSent()
		}
	}
}
