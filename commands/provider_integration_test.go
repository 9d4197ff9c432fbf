package commands

import (
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/onnwee/stream-bot/testutil"
	"github.com/onnwee/stream-bot/twitchapi"
)

func newMockProvider(t *testing.T, clock clockwork.Clock) (*testutil.MockTwitchServer, *twitchapi.Provider) {
	t.Helper()
	m := testutil.NewMockTwitchServer(t)
	m.MockOAuthTokenResponse("app-token", 3600)
	helix := &twitchapi.HelixClient{
		AppTokenSource: &twitchapi.TokenSource{
			ClientID:     "cid",
			ClientSecret: "secret",
			TokenURL:     m.URL + "/oauth2/token",
		},
		ClientID: "cid",
		BaseURL:  m.URL + "/helix",
	}
	return m, &twitchapi.Provider{Helix: helix, Channel: "streamer", Clock: clock}
}

func TestBuiltins_WithHelixProvider(t *testing.T) {
	startedAt := time.Date(2024, 10, 15, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(startedAt.Add(90 * time.Minute))
	m, provider := newMockProvider(t, clock)
	m.MockStreamsResponse([]map[string]interface{}{
		{"id": "s1", "user_login": "streamer", "viewer_count": 321, "started_at": startedAt.Format(time.RFC3339)},
	})
	m.MockUserResponse("777", "streamer")
	m.MockFollowersResponse(4242)

	f := newFixture(t, provider)
	f.send("alice", "!viewers")
	f.send("alice", "!uptime")
	f.send("alice", "!followers")
	f.send("alice", "!followers")

	assert.Equal(t, []string{
		"Current viewers: 321",
		"streamer has been live for 1h 30m 0s",
		"streamer has 4242 followers",
		"streamer has 4242 followers",
	}, f.sender.all())
	assert.Equal(t, 1, m.Hits("/oauth2/token"))
	assert.Equal(t, 1, m.Hits("/helix/users"))
}

func TestBuiltins_HelixFailureFallsBack(t *testing.T) {
	m, provider := newMockProvider(t, clockwork.NewFakeClock())
	m.MockError("/helix/streams", http.StatusUnauthorized)
	m.MockError("/helix/users", http.StatusUnauthorized)

	f := newFixture(t, provider)
	f.send("alice", "!viewers")
	f.send("alice", "!uptime")
	f.send("alice", "!followers")

	assert.Equal(t, []string{
		"Viewer count is unavailable right now.",
		"Uptime is unavailable right now.",
		"Follower count is unavailable right now.",
	}, f.sender.all())
}

func TestBuiltins_OfflineChannel(t *testing.T) {
	m, provider := newMockProvider(t, clockwork.NewFakeClock())
	m.MockStreamsResponse([]map[string]interface{}{})

	f := newFixture(t, provider)
	f.send("alice", "!uptime")
	f.send("alice", "!viewers")

	assert.Equal(t, []string{
		"streamer is offline.",
		"Viewer count is unavailable right now.",
	}, f.sender.all())
}
