package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/stream-bot/chat"
	"github.com/onnwee/stream-bot/eventlog"
	"github.com/onnwee/stream-bot/poll"
	"github.com/onnwee/stream-bot/telemetry"
)

const defaultTimeout = 5 * time.Second

// Ballots is the part of the poll engine the dispatcher drives.
type Ballots interface {
	Active() bool
	CastVote(voterID string, choice poll.Choice) error
}

// ChatLog receives every non-self chat line.
type ChatLog interface {
	LogChat(ctx context.Context, rec eventlog.ChatMessage)
}

// Sender delivers outbound chat lines without blocking.
type Sender interface {
	Say(channel, text string)
}

// DispatcherOptions configures a Dispatcher. Only Registry and Ballots are needed for routing.
type DispatcherOptions struct {
	Registry *Registry
	Ballots  Ballots
	ChatLog  ChatLog       // optional
	Sender   Sender
	Timeout  time.Duration // per command; default 5s
}

// Dispatcher routes inbound messages to the poll engine or a command.
type Dispatcher struct {
	registry *Registry
	ballots  Ballots
	chatLog  ChatLog
	sender   Sender
	timeout  time.Duration
}

// NewDispatcher returns a dispatcher with defaults applied.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		registry: opts.Registry,
		ballots:  opts.Ballots,
		chatLog:  opts.ChatLog,
		sender:   opts.Sender,
		timeout:  opts.Timeout,
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	return d
}

// Handle processes one inbound message. It is meant to be called sequentially
// in chat arrival order.
func (d *Dispatcher) Handle(ctx context.Context, msg chat.Message) {
	if msg.Self {
		return
	}
	if d.chatLog != nil {
		d.chatLog.LogChat(ctx, eventlog.ChatMessage{
			Timestamp:   msg.ReceivedAt,
			Channel:     msg.Channel,
			UserID:      msg.User.ID,
			Username:    msg.User.Login,
			DisplayName: msg.User.DisplayName,
			Message:     msg.Text,
		})
	}

	active := d.ballots != nil && d.ballots.Active()
	cl := d.registry.Classify(msg.Text, active)
	switch cl.Kind {
	case KindBallot:
		d.vote(msg, cl.Choice)
	case KindCommand:
		d.run(ctx, msg, cl.Command, cl.Args)
	}
}

func (d *Dispatcher) vote(msg chat.Message, choice poll.Choice) {
	voter := msg.User.ID
	if voter == "" {
		voter = msg.User.Login
	}
	err := d.ballots.CastVote(voter, choice)
	switch {
	case err == nil:
	case errors.Is(err, poll.ErrAlreadyVoted):
		d.say(msg.Channel, fmt.Sprintf("@%s you already voted in this poll.", msg.User.Name()))
	case errors.Is(err, poll.ErrNoActivePoll):
		// The poll closed between classification and the vote.
		d.say(msg.Channel, fmt.Sprintf("@%s the poll has already closed.", msg.User.Name()))
	default:
		slog.Warn("vote rejected", slog.String("user", msg.User.Login), slog.Any("err", err), slog.String("component", "commands"))
	}
}

func (d *Dispatcher) run(ctx context.Context, msg chat.Message, cmd Command, args []string) {
	name := cmd.Name()
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	ctx, span := telemetry.StartSpan(ctx, "command "+name, telemetry.CommandAttrs(msg.Channel, name, msg.User.Login)...)
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	c := &Context{
		Channel: msg.Channel,
		User:    msg.User,
		Args:    args,
		Reply:   func(text string) { d.say(msg.Channel, text) },
	}
	telemetry.IncCommand(name)
	var err error
	telemetry.TimeFunc(telemetry.CommandDuration, func() { err = cmd.Execute(ctx, c) })
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.LoggerWithCorr(ctx).Warn("command failed",
			slog.String("command", name),
			slog.String("user", msg.User.Login),
			slog.Any("err", err),
			slog.String("component", "commands"))
		return
	}
	telemetry.SetSpanSuccess(span)
}

func (d *Dispatcher) say(channel, text string) {
	if d.sender != nil {
		d.sender.Say(channel, text)
	}
}
