package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/onnwee/stream-bot/poll"
	"github.com/onnwee/stream-bot/telemetry"
	"github.com/onnwee/stream-bot/twitchapi"
)

// Fallback replies used when a lookup fails.
const (
	viewersUnavailable   = "Viewer count is unavailable right now."
	uptimeUnavailable    = "Uptime is unavailable right now."
	followersUnavailable = "Follower count is unavailable right now."
	pollsUnavailable     = "Polls are unavailable right now."
	wrudLine             = "hanging out with chat and writing some Go. What are you up to?"
)

// InfoProvider answers channel lookups. twitchapi.Provider implements it.
type InfoProvider interface {
	ViewerCount(ctx context.Context) (int, error)
	Uptime(ctx context.Context) (time.Duration, error)
	FollowerCount(ctx context.Context) (int, error)
}

// PollStarter opens polls. poll.Engine implements it.
type PollStarter interface {
	StartPoll(ctx context.Context, question string) (poll.Snapshot, error)
}

// BuiltinDeps are the collaborators of the built-in commands. Nil Info or
// Polls makes the matching commands reply that they are unavailable.
type BuiltinDeps struct {
	Channel string
	Info    InfoProvider
	Polls   PollStarter
	// Roll returns a die face in 1..6; nil uses math/rand.
	Roll func() int
}

// RegisterBuiltins adds the standard command set to r.
func RegisterBuiltins(r *Registry, deps BuiltinDeps) error {
	roll := deps.Roll
	if roll == nil {
		roll = func() int { return rand.IntN(6) + 1 }
	}
	if deps.Info == nil {
		deps.Info = noInfo{}
	}
	if deps.Polls == nil {
		deps.Polls = noPolls{}
	}
	cmds := []Command{
		Func{"!viewers", "Shows the current viewer count", func(ctx context.Context, c *Context) error {
			n, err := deps.Info.ViewerCount(ctx)
			if err != nil {
				c.Reply(viewersUnavailable)
				return lookupFailed("viewers", err)
			}
			c.Reply(fmt.Sprintf("Current viewers: %d", n))
			return nil
		}},
		Func{"!uptime", "Shows how long the stream has been live", func(ctx context.Context, c *Context) error {
			d, err := deps.Info.Uptime(ctx)
			switch {
			case errors.Is(err, twitchapi.ErrOffline):
				c.Reply(fmt.Sprintf("%s is offline.", deps.Channel))
				return nil
			case err != nil:
				c.Reply(uptimeUnavailable)
				return lookupFailed("uptime", err)
			}
			c.Reply(fmt.Sprintf("%s has been live for %s", deps.Channel, FormatUptime(d)))
			return nil
		}},
		Func{"!followers", "Shows the follower count", func(ctx context.Context, c *Context) error {
			n, err := deps.Info.FollowerCount(ctx)
			if err != nil {
				c.Reply(followersUnavailable)
				return lookupFailed("followers", err)
			}
			c.Reply(fmt.Sprintf("%s has %d followers", deps.Channel, n))
			return nil
		}},
		Func{"!hello", "Says hello", func(_ context.Context, c *Context) error {
			c.Reply(fmt.Sprintf("Hello @%s!", c.User.Name()))
			return nil
		}},
		Func{"!wrud", "What the streamer is doing right now", func(_ context.Context, c *Context) error {
			c.Reply(fmt.Sprintf("@%s %s", c.User.Name(), wrudLine))
			return nil
		}},
		Func{"!shoutout", "Gives a shoutout to another streamer: !shoutout <user>", func(_ context.Context, c *Context) error {
			if len(c.Args) == 0 {
				c.Reply("Usage: !shoutout <user>")
				return nil
			}
			target := strings.TrimPrefix(c.Args[0], "@")
			if target == "" {
				c.Reply("Usage: !shoutout <user>")
				return nil
			}
			c.Reply(fmt.Sprintf("Go check out @%s at https://twitch.tv/%s !", target, strings.ToLower(target)))
			return nil
		}},
		Func{"!dice", "Rolls a six-sided die", func(_ context.Context, c *Context) error {
			c.Reply(fmt.Sprintf("@%s rolled a %d", c.User.Name(), roll()))
			return nil
		}},
		Func{"!startpoll", "Starts a yes/no poll: !startpoll <question>", func(ctx context.Context, c *Context) error {
			question := PollQuestion(c.Args)
			if question == "" {
				c.Reply("Usage: !startpoll <question>")
				return nil
			}
			_, err := deps.Polls.StartPoll(ctx, question)
			switch {
			case errors.Is(err, poll.ErrPollActive):
				c.Reply(fmt.Sprintf("@%s a poll is already running, wait for it to finish.", c.User.Name()))
				return nil
			case errors.Is(err, ErrNoPolls):
				c.Reply(pollsUnavailable)
			}
			return err
		}},
		Func{"!commands", "Lists the available commands", func(_ context.Context, c *Context) error {
			for _, cmd := range r.List() {
				c.Reply(fmt.Sprintf("%s - %s", cmd.Name(), cmd.Description()))
			}
			return nil
		}},
	}
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// ErrNoProvider is returned by lookups when no Helix credentials are configured.
var ErrNoProvider = errors.New("info provider not configured")

type noInfo struct{}

func (noInfo) ViewerCount(context.Context) (int, error)      { return 0, ErrNoProvider }
func (noInfo) Uptime(context.Context) (time.Duration, error) { return 0, ErrNoProvider }
func (noInfo) FollowerCount(context.Context) (int, error)    { return 0, ErrNoProvider }

// ErrNoPolls is returned by !startpoll when no poll engine is configured.
var ErrNoPolls = errors.New("poll engine not configured")

type noPolls struct{}

func (noPolls) StartPoll(context.Context, string) (poll.Snapshot, error) { return poll.Snapshot{}, ErrNoPolls }

func lookupFailed(endpoint string, err error) error {
	telemetry.IncProviderError(endpoint)
	return fmt.Errorf("%s lookup: %w", endpoint, err)
}

var quoteStripper = strings.NewReplacer(`"`, "", "'", "", "“", "", "”", "")

// PollQuestion joins args and strips quote characters.
func PollQuestion(args []string) string {
	return strings.TrimSpace(quoteStripper.Replace(strings.Join(args, " ")))
}

// FormatUptime renders d as "1h 2m 3s", dropping leading zero units.
func FormatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
