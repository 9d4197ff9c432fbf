package twitchapi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrOffline is returned by stream lookups when the channel is not live.
var ErrOffline = errors.New("channel offline")

// Provider answers the channel questions chat commands ask. It is bound to a
// single channel and resolves the broadcaster id lazily when not configured.
type Provider struct {
	Helix         *HelixClient
	Channel       string
	BroadcasterID string
	Clock         clockwork.Clock

	mu       sync.Mutex
	resolved string
}

func (p *Provider) now() time.Time {
	if p.Clock != nil {
		return p.Clock.Now()
	}
	return time.Now()
}

func (p *Provider) liveStream(ctx context.Context) (Stream, error) {
	streams, err := p.Helix.GetStreams(ctx, p.Channel)
	if err != nil {
		return Stream{}, err
	}
	if len(streams) == 0 {
		return Stream{}, ErrOffline
	}
	return streams[0], nil
}

// ViewerCount returns the current viewer count, or ErrOffline.
func (p *Provider) ViewerCount(ctx context.Context) (int, error) {
	s, err := p.liveStream(ctx)
	if err != nil {
		return 0, err
	}
	return s.ViewerCount, nil
}

// Uptime returns how long the current broadcast has been live, or ErrOffline.
func (p *Provider) Uptime(ctx context.Context) (time.Duration, error) {
	s, err := p.liveStream(ctx)
	if err != nil {
		return 0, err
	}
	if s.StartedAt.IsZero() {
		return 0, fmt.Errorf("stream %s has no start time", s.ID)
	}
	d := p.now().Sub(s.StartedAt)
	if d < 0 {
		d = 0
	}
	return d, nil
}

// FollowerCount returns the channel's total follower count.
func (p *Provider) FollowerCount(ctx context.Context) (int, error) {
	id, err := p.broadcasterID(ctx)
	if err != nil {
		return 0, err
	}
	return p.Helix.GetFollowerCount(ctx, id)
}

func (p *Provider) broadcasterID(ctx context.Context) (string, error) {
	if p.BroadcasterID != "" {
		return p.BroadcasterID, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved != "" {
		return p.resolved, nil
	}
	id, err := p.Helix.GetUserID(ctx, p.Channel)
	if err != nil {
		return "", fmt.Errorf("resolve broadcaster id: %w", err)
	}
	p.resolved = id
	return id, nil
}
