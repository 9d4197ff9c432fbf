package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PollDuration != 30*time.Second {
		t.Errorf("PollDuration = %v, want 30s", cfg.PollDuration)
	}
	if cfg.ReminderInterval != 10*time.Minute {
		t.Errorf("ReminderInterval = %v, want 10m", cfg.ReminderInterval)
	}
	if len(cfg.ReminderMessages) != len(DefaultReminders) {
		t.Errorf("expected %d default reminders, got %d", len(DefaultReminders), len(cfg.ReminderMessages))
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if !cfg.CORSPermissive || cfg.StatusRateLimit != 5 || cfg.StatusRateBurst != 10 {
		t.Errorf("unexpected HTTP defaults: cors=%v rate=%v burst=%d", cfg.CORSPermissive, cfg.StatusRateLimit, cfg.StatusRateBurst)
	}
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CORS_PERMISSIVE", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://overlay.example.com|*.example.org")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CORSPermissive {
		t.Error("expected CORS_PERMISSIVE=false to disable permissive mode")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "*.example.org" {
		t.Errorf("unexpected origins: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadNormalizesChannel(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL", " #Streamer ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.TwitchChannel != "streamer" {
		t.Errorf("TwitchChannel = %q, want streamer", cfg.TwitchChannel)
	}
}

func TestLoadReminderMessages(t *testing.T) {
	t.Setenv("REMINDER_MESSAGES", "first one|second one")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.ReminderMessages) != 2 || cfg.ReminderMessages[1] != "second one" {
		t.Errorf("unexpected reminders: %#v", cfg.ReminderMessages)
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unparseable poll duration", "POLL_DURATION", "soon"},
		{"zero poll duration", "POLL_DURATION", "0s"},
		{"negative reminder interval", "REMINDER_INTERVAL", "-1m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestValidateChatReady(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL", "chan")
	t.Setenv("TWITCH_BOT_USERNAME", "bot")
	t.Setenv("TWITCH_OAUTH_TOKEN", "oauth:token")
	cfg, _ := Load()
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("expected valid chat config, got %v", err)
	}
	t.Setenv("TWITCH_CHANNEL", "")
	cfg, _ = Load()
	if err := cfg.ValidateChatReady(); err == nil {
		t.Errorf("expected error when missing twitch envs")
	}
}

func TestHelixEnabled(t *testing.T) {
	cfg := &Config{TwitchClientID: "id"}
	if cfg.HelixEnabled() {
		t.Errorf("HelixEnabled() = true without secret")
	}
	cfg.TwitchClientSecret = "secret"
	if !cfg.HelixEnabled() {
		t.Errorf("HelixEnabled() = false with id and secret")
	}
}
