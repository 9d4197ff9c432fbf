// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs
// for the bot's info commands: stream status, follower counts and user id
// resolution, using an app access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/onnwee/stream-bot/telemetry"
)

const (
	defaultBaseURL  = "https://api.twitch.tv/helix"
	helixMaxRetries = 2
)

// retryBackoff is the wait before retry n (1-based). Tests shorten it.
var retryBackoff = func(n int) time.Duration { return time.Duration(n) * 250 * time.Millisecond }

var (
	ErrNotFound = errors.New("not found")
	// ErrCircuitOpen is returned without a request while the breaker is open.
	ErrCircuitOpen = errors.New("helix circuit open")
)

// StatusError is a non-2xx Helix response.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("helix %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// HelixClient provides the lookups the bot's info commands need.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	// UserToken, when set, is sent instead of the app token for endpoints
	// that require broadcaster or moderator authorization.
	UserToken  string
	HTTPClient *http.Client
	BaseURL    string

	breakerOnce sync.Once
	breaker     *gobreaker.CircuitBreaker
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) baseURL() string {
	if hc.BaseURL != "" {
		return strings.TrimRight(hc.BaseURL, "/")
	}
	return defaultBaseURL
}

func (hc *HelixClient) cb() *gobreaker.CircuitBreaker {
	hc.breakerOnce.Do(func() {
		hc.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "helix",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
			// 4xx answers mean Helix is up; only transport errors and 5xx trip the breaker.
			IsSuccessful: func(err error) bool {
				var se *StatusError
				if errors.As(err, &se) {
					return se.StatusCode < 500
				}
				return err == nil
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("helix circuit state change", slog.String("from", from.String()), slog.String("to", to.String()))
				telemetry.RecordCircuitStateChange(name, to.String())
			},
		})
	})
	return hc.breaker
}

// Get performs a GET against path (e.g. "/streams") with the app token and
// decodes the JSON body into out.
func (hc *HelixClient) Get(ctx context.Context, path string, params url.Values, out any) error {
	return hc.get(ctx, path, params, out, false)
}

func (hc *HelixClient) get(ctx context.Context, path string, params url.Values, out any, preferUser bool) error {
	_, err := hc.cb().Execute(func() (interface{}, error) {
		return nil, hc.getWithRetry(ctx, path, params, out, preferUser)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

func (hc *HelixClient) getWithRetry(ctx context.Context, path string, params url.Values, out any, preferUser bool) error {
	var err error
	for attempt := 0; attempt <= helixMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff(attempt)):
			}
		}
		err = hc.do(ctx, path, params, out, preferUser)
		var se *StatusError
		if err == nil || !errors.As(err, &se) || se.StatusCode < 500 {
			return err
		}
		slog.Debug("helix retry", slog.String("path", path), slog.Int("attempt", attempt+1), slog.Int("status", se.StatusCode))
	}
	return err
}

func (hc *HelixClient) do(ctx context.Context, path string, params url.Values, out any, preferUser bool) error {
	tok := hc.UserToken
	if !preferUser || tok == "" {
		if hc.AppTokenSource == nil {
			return errors.New("helix: no token source configured")
		}
		var err error
		if tok, err = hc.AppTokenSource.Get(ctx); err != nil {
			return err
		}
	}
	u := hc.baseURL() + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)

	start := time.Now()
	resp, err := hc.http().Do(req)
	if telemetry.HelixRequestDuration != nil {
		telemetry.HelixRequestDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	if login == "" {
		return "", fmt.Errorf("login empty")
	}
	var body struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := hc.Get(ctx, "/users", url.Values{"login": {login}}, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return body.Data[0].ID, nil
}

// Stream is a live broadcast as reported by /helix/streams.
type Stream struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	UserLogin   string    `json:"user_login"`
	UserName    string    `json:"user_name"`
	GameName    string    `json:"game_name"`
	Title       string    `json:"title"`
	ViewerCount int       `json:"viewer_count"`
	StartedAt   time.Time `json:"started_at"`
}

// GetStreams returns the live streams for login; an empty slice means offline.
func (hc *HelixClient) GetStreams(ctx context.Context, login string) ([]Stream, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	var body struct {
		Data []Stream `json:"data"`
	}
	if err := hc.Get(ctx, "/streams", url.Values{"user_login": {login}}, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// GetFollowerCount returns the total follower count of a broadcaster.
// The endpoint prefers UserToken when one is configured.
func (hc *HelixClient) GetFollowerCount(ctx context.Context, broadcasterID string) (int, error) {
	if broadcasterID == "" {
		return 0, fmt.Errorf("broadcaster id empty")
	}
	var body struct {
		Total int `json:"total"`
	}
	params := url.Values{"broadcaster_id": {broadcasterID}, "first": {"1"}}
	if err := hc.get(ctx, "/channels/followers", params, &body, true); err != nil {
		return 0, err
	}
	return body.Total, nil
}
