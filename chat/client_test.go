package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu        sync.Mutex
	onConnect func()
	onPrivmsg func(twitch.PrivateMessage)
	joined    []string
	said      []string
	stop      chan struct{}
	connErr   error
}

func newFakeConn() *fakeConn { return &fakeConn{stop: make(chan struct{})} }

func (f *fakeConn) OnConnect(fn func())                             { f.onConnect = fn }
func (f *fakeConn) OnPrivateMessage(fn func(twitch.PrivateMessage)) { f.onPrivmsg = fn }

func (f *fakeConn) Join(channels ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, channels...)
}

func (f *fakeConn) Say(channel, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.said = append(f.said, channel+": "+text)
}

func (f *fakeConn) Connect() error {
	if f.connErr != nil {
		return f.connErr
	}
	f.onConnect()
	<-f.stop
	return twitch.ErrClientDisconnected
}

func (f *fakeConn) Disconnect() error {
	close(f.stop)
	return nil
}

func (f *fakeConn) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.said...)
}

func TestDispatchConvertsAndFlagsSelf(t *testing.T) {
	conn := newFakeConn()
	c := newClient(conn, Options{Channel: "#Streamer", Username: "StreamBot"})

	var got []Message
	c.OnMessage(func(m Message) { got = append(got, m) })

	conn.onPrivmsg(twitch.PrivateMessage{
		User:    twitch.User{ID: "42", Name: "alice", DisplayName: "Alice"},
		Channel: "streamer",
		Message: "!dice",
	})
	conn.onPrivmsg(twitch.PrivateMessage{
		User:    twitch.User{ID: "1", Name: "streambot", DisplayName: "StreamBot"},
		Channel: "streamer",
		Message: "Poll started",
	})

	require.Len(t, got, 2)
	assert.Equal(t, "streamer", got[0].Channel)
	assert.Equal(t, User{ID: "42", Login: "alice", DisplayName: "Alice"}, got[0].User)
	assert.Equal(t, "!dice", got[0].Text)
	assert.False(t, got[0].Self)
	assert.False(t, got[0].ReceivedAt.IsZero())
	assert.True(t, got[1].Self)
	assert.Equal(t, "streamer", c.Channel())
}

func TestUserName(t *testing.T) {
	assert.Equal(t, "Alice", User{Login: "alice", DisplayName: "Alice"}.Name())
	assert.Equal(t, "alice", User{Login: "alice"}.Name())
}

func TestRunJoinsSendsAndDisconnects(t *testing.T) {
	conn := newFakeConn()
	c := newClient(conn, Options{Channel: "streamer", Username: "bot"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, c.Connected, time.Second, 5*time.Millisecond)
	c.Say("", "hello")
	c.Say("other", "hi there")
	c.Say("streamer", "") // ignored

	require.Eventually(t, func() bool { return len(conn.sent()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"streamer: hello", "other: hi there"}, conn.sent())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, c.Connected())
	assert.Equal(t, []string{"streamer"}, conn.joined)
}

func TestRunReturnsConnectError(t *testing.T) {
	conn := newFakeConn()
	conn.connErr = assert.AnError
	c := newClient(conn, Options{Channel: "streamer"})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, c.Connected())
}

func TestSayNormalizesChannel(t *testing.T) {
	conn := newFakeConn()
	c := newClient(conn, Options{Channel: "#Streamer"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.sendLoop(ctx)

	c.Say("#Streamer", "poll started")
	c.Say("", "reminder")
	require.Eventually(t, func() bool { return len(conn.sent()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"streamer: poll started", "streamer: reminder"}, conn.sent())
	assert.Equal(t, "streamer", c.Channel())
}

func TestSayDropsWhenQueueFull(t *testing.T) {
	conn := newFakeConn()
	c := newClient(conn, Options{Channel: "streamer", QueueSize: 2})
	// Run is not started, nothing drains the queue.
	c.Say("", "one")
	c.Say("", "two")
	c.Say("", "three")
	assert.Len(t, c.outbox, 2)
}

func TestSendLoopRespectsRateLimit(t *testing.T) {
	conn := newFakeConn()
	c := newClient(conn, Options{Channel: "streamer", RateLimit: 4, RateWindow: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.sendLoop(ctx)

	for _, s := range []string{"a", "b", "c"} {
		c.Say("", s)
	}
	// Half the limit is available immediately; the rest is paced across the window.
	require.Eventually(t, func() bool { return len(conn.sent()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, conn.sent(), 2)
}

func TestSendLimiterNeverExceedsLimitPerWindow(t *testing.T) {
	tests := []struct {
		limit  int
		window time.Duration
	}{
		{defaultRateLimit, defaultRateWindow},
		{1, time.Second},
		{2, time.Second},
		{100, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d per %s", tt.limit, tt.window), func(t *testing.T) {
			lim := newSendLimiter(tt.limit, tt.window)
			start := time.Now()
			step := tt.window / 3000
			var allowed []time.Duration
			for d := time.Duration(0); d < 3*tt.window; d += step {
				if lim.AllowN(start.Add(d), 1) {
					allowed = append(allowed, d)
				}
			}
			maxInWindow := 0
			for i, from := range allowed {
				n := 0
				for _, at := range allowed[i:] {
					if at >= from+tt.window {
						break
					}
					n++
				}
				maxInWindow = max(maxInWindow, n)
			}
			assert.LessOrEqual(t, maxInWindow, tt.limit)
			assert.GreaterOrEqual(t, len(allowed), 2*tt.limit, "limiter should not starve sends")
		})
	}
}

func TestNewClientAddsOAuthPrefix(t *testing.T) {
	// Only checks construction; no network is touched until Run.
	c := NewClient(Options{Channel: "streamer", Username: "bot", OAuthToken: "abc"})
	assert.NotNil(t, c)
	assert.False(t, c.Connected())
}
