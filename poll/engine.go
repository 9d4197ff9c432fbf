package poll

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/onnwee/stream-bot/eventlog"
	"github.com/onnwee/stream-bot/telemetry"
)

// DefaultDuration is how long a poll stays open.
const DefaultDuration = 30 * time.Second

// Announcer sends a chat line. Implementations must not block.
type Announcer interface {
	Say(channel, text string)
}

// Sink receives the result record of every expired poll.
type Sink interface {
	LogPollResult(ctx context.Context, rec eventlog.PollResult)
}

// Options configures an Engine.
type Options struct {
	Channel   string
	Duration  time.Duration   // <=0 selects DefaultDuration
	Clock     clockwork.Clock // nil selects the real clock
	Announcer Announcer
	Sink      Sink
	// OnExpire, when set, is called with every result after announcement and logging.
	OnExpire func(Result)
}

// Engine owns the single active poll. All methods are safe for concurrent use.
type Engine struct {
	channel  string
	duration time.Duration
	clock    clockwork.Clock
	announce Announcer
	sink     Sink
	onExpire func(Result)

	mu      sync.Mutex
	current *poll
}

// NewEngine returns an idle engine; zero options select the defaults.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		channel:  opts.Channel,
		duration: opts.Duration,
		clock:    opts.Clock,
		announce: opts.Announcer,
		sink:     opts.Sink,
		onExpire: opts.OnExpire,
	}
	if e.duration <= 0 {
		e.duration = DefaultDuration
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	return e
}

// Duration reports the configured poll length.
func (e *Engine) Duration() time.Duration { return e.duration }

// StartPoll opens a new poll for question. It fails with ErrPollActive while
// another poll is open and with ErrEmptyQuestion for a blank question.
func (e *Engine) StartPoll(ctx context.Context, question string) (Snapshot, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Snapshot{}, ErrEmptyQuestion
	}

	e.mu.Lock()
	if e.current != nil {
		e.mu.Unlock()
		return Snapshot{}, ErrPollActive
	}
	now := e.clock.Now()
	p := &poll{
		id:        uuid.NewString(),
		question:  question,
		voters:    make(map[string]struct{}),
		startedAt: now,
		expiresAt: now.Add(e.duration),
	}
	e.current = p
	// Scheduled under the lock so the timer always sees e.current == p first.
	e.clock.AfterFunc(e.duration, func() { e.expire(p) })
	snap := p.snapshot()
	e.mu.Unlock()

	telemetry.IncPollStarted()
	telemetry.SetPollActive(true)
	telemetry.LoggerWithCorr(ctx).Info("poll started",
		slog.String("component", "poll"),
		slog.String("poll_id", snap.ID),
		slog.String("question", snap.Question),
		slog.Duration("duration", e.duration))
	e.say(fmt.Sprintf("Poll started: %s Vote 1 for YES or 0 for NO. You have %d seconds!",
		snap.Question, int(e.duration.Seconds())))
	return snap, nil
}

// CastVote records one ballot for voterID in the active poll.
func (e *Engine) CastVote(voterID string, choice Choice) error {
	if !choice.Valid() {
		return ErrInvalidChoice
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.current
	if p == nil {
		telemetry.IncVote("no_poll")
		return ErrNoActivePoll
	}
	if _, seen := p.voters[voterID]; seen {
		telemetry.IncVote("duplicate")
		return ErrAlreadyVoted
	}
	p.voters[voterID] = struct{}{}
	p.tally.add(choice)
	telemetry.IncVote("accepted")
	return nil
}

// Active reports whether a poll is currently open.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Snapshot returns a copy of the active poll, if any.
func (e *Engine) Snapshot() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return Snapshot{}, false
	}
	return e.current.snapshot(), true
}

// expire closes p if it is still the active poll. The identity check makes a
// second invocation for the same poll a no-op.
func (e *Engine) expire(p *poll) {
	e.mu.Lock()
	if e.current != p {
		e.mu.Unlock()
		return
	}
	e.current = nil
	res := Result{
		Snapshot: p.snapshot(),
		Outcome:  Decide(p.tally),
		EndedAt:  p.expiresAt,
	}
	e.mu.Unlock()

	telemetry.SetPollActive(false)
	telemetry.IncPollCompleted(res.Outcome.String())
	slog.Info("poll closed",
		slog.String("component", "poll"),
		slog.String("poll_id", res.ID),
		slog.String("winner", res.Outcome.String()),
		slog.Int("yes", res.Tally.Yes),
		slog.Int("no", res.Tally.No))

	e.say(announcement(res))
	if e.sink != nil {
		e.sink.LogPollResult(context.Background(), eventlog.PollResult{
			Timestamp:  res.EndedAt.UTC(),
			PollID:     res.ID,
			Question:   res.Question,
			Tally:      eventlog.Tally{No: res.Tally.No, Yes: res.Tally.Yes},
			Winner:     res.Outcome.String(),
			TotalVotes: res.Tally.Total(),
			StartedAt:  res.StartedAt.UTC(),
		})
	}
	if e.onExpire != nil {
		e.onExpire(res)
	}
}

func (e *Engine) say(text string) {
	if e.announce != nil {
		e.announce.Say(e.channel, text)
	}
}

func announcement(res Result) string {
	counts := fmt.Sprintf("(%d yes / %d no)", res.Tally.Yes, res.Tally.No)
	if res.Outcome == Tie {
		return fmt.Sprintf("Poll closed: %s It's a tie! %s", res.Question, counts)
	}
	return fmt.Sprintf("Poll closed: %s Winner: %s %s", res.Question, res.Outcome, counts)
}
