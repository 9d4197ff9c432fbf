package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"golang.org/x/time/rate"

	"github.com/onnwee/stream-bot/telemetry"
)

const (
	defaultQueueSize  = 64
	defaultRateLimit  = 20
	defaultRateWindow = 30 * time.Second
	disconnectWait    = 5 * time.Second
)

// ircConn is the subset of *twitch.Client the transport uses.
type ircConn interface {
	OnConnect(func())
	OnPrivateMessage(func(twitch.PrivateMessage))
	Join(channels ...string)
	Say(channel, text string)
	Connect() error
	Disconnect() error
}

// Options configures a Client.
type Options struct {
	Channel    string
	Username   string
	OAuthToken string
	RateLimit  int           // messages per RateWindow, default 20
	RateWindow time.Duration // default 30s
	QueueSize  int           // outbound queue, default 64
}

type outbound struct {
	channel string
	text    string
}

// Client is a rate-limited Twitch chat connection for a single channel.
type Client struct {
	conn     ircConn
	channel  string
	username string
	limiter  *rate.Limiter
	outbox   chan outbound

	connected atomic.Bool

	mu       sync.RWMutex
	handlers []func(Message)
}

// NewClient builds a client backed by go-twitch-irc. Call Run to connect.
func NewClient(opts Options) *Client {
	token := opts.OAuthToken
	if token != "" && !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}
	return newClient(twitch.NewClient(opts.Username, token), opts)
}

func newClient(conn ircConn, opts Options) *Client {
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = defaultRateWindow
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	c := &Client{
		conn:     conn,
		channel:  normalizeChannel(opts.Channel),
		username: opts.Username,
		limiter:  newSendLimiter(opts.RateLimit, opts.RateWindow),
		outbox:   make(chan outbound, opts.QueueSize),
	}
	conn.OnConnect(func() {
		c.connected.Store(true)
		telemetry.SetChatConnected(true)
		slog.Info("twitch chat connected", slog.String("channel", c.channel), slog.String("component", "chat"))
	})
	conn.OnPrivateMessage(c.dispatch)
	return c
}

// newSendLimiter allows at most limit sends in any window-long span. A bucket
// of size b refilling r tokens per window admits at most b+r-1 sends in such a
// span, so half the limit is available as a burst and the rest paces out.
func newSendLimiter(limit int, window time.Duration) *rate.Limiter {
	burst := (limit + 1) / 2
	refill := limit - burst + 1
	return rate.NewLimiter(rate.Every(window/time.Duration(refill)), burst)
}

// normalizeChannel returns the bare lower-case login; go-twitch-irc adds the "#" itself.
func normalizeChannel(ch string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ch), "#"))
}

// Channel returns the joined channel login.
func (c *Client) Channel() string { return c.channel }

// OnMessage registers fn for every inbound chat line, including the bot's own.
func (c *Client) OnMessage(fn func(Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, fn)
}

func (c *Client) dispatch(pm twitch.PrivateMessage) {
	msg := fromPrivateMessage(pm, c.username, time.Now())
	c.mu.RLock()
	handlers := c.handlers
	c.mu.RUnlock()
	for _, h := range handlers {
		h(msg)
	}
}

// Say queues text for channel. It never blocks; a full queue drops the line.
func (c *Client) Say(channel, text string) {
	if text == "" {
		return
	}
	channel = normalizeChannel(channel)
	if channel == "" {
		channel = c.channel
	}
	select {
	case c.outbox <- outbound{channel: channel, text: text}:
	default:
		telemetry.IncChatDropped()
		slog.Warn("chat outbound queue full; message dropped", slog.String("channel", channel), slog.String("component", "chat"))
	}
}

// Connected reports whether the IRC session is up.
func (c *Client) Connected() bool { return c.connected.Load() }

// Run joins the channel, connects and sends queued messages until ctx is
// cancelled. It returns the connection error if the session ends on its own.
func (c *Client) Run(ctx context.Context) error {
	sendCtx, stopSend := context.WithCancel(ctx)
	defer stopSend()
	go c.sendLoop(sendCtx)

	c.conn.Join(c.channel)
	errCh := make(chan error, 1)
	go func() { errCh <- c.conn.Connect() }()

	select {
	case <-ctx.Done():
		if err := c.conn.Disconnect(); err != nil {
			slog.Debug("twitch chat disconnect", slog.Any("err", err))
		}
		select {
		case <-errCh:
		case <-time.After(disconnectWait):
		}
		c.markDisconnected()
		return nil
	case err := <-errCh:
		c.markDisconnected()
		if errors.Is(err, twitch.ErrClientDisconnected) {
			return nil
		}
		slog.Error("twitch chat connect error", slog.Any("err", err), slog.String("component", "chat"))
		return err
	}
}

func (c *Client) markDisconnected() {
	c.connected.Store(false)
	telemetry.SetChatConnected(false)
}

func (c *Client) sendLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-c.outbox:
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			c.conn.Say(m.channel, m.text)
			telemetry.IncChatSent()
		}
	}
}
