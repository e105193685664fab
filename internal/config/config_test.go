package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend.local:8000/")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Backend.URL != "http://backend.local:8000" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Backend.URL)
	}
	if cfg.Status.PollInterval != 30*time.Second {
		t.Errorf("unexpected poll interval: %v", cfg.Status.PollInterval)
	}
	if cfg.Status.Timeout != 2*time.Second {
		t.Errorf("unexpected status timeout: %v", cfg.Status.Timeout)
	}
	if cfg.ActionLogPage != 50 {
		t.Errorf("unexpected action log page size: %d", cfg.ActionLogPage)
	}
	if cfg.Backend.Timeout != 30*time.Second || cfg.ChatTimeout != 30*time.Second {
		t.Errorf("unexpected timeouts: backend %v chat %v", cfg.Backend.Timeout, cfg.ChatTimeout)
	}
	if cfg.RateLimit.RequestsPerWindow != 10 || cfg.RateLimit.WindowDuration != time.Minute {
		t.Errorf("unexpected rate limit: %+v", cfg.RateLimit)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STATUS_POLL_INTERVAL", "5s")
	t.Setenv("STATUS_TIMEOUT", "250ms")
	t.Setenv("CONVERSATION_LOG_ENABLED", "off")
	t.Setenv("TRANSCRIPT_TTL", "not-a-duration")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Status.PollInterval != 5*time.Second {
		t.Errorf("unexpected poll interval: %v", cfg.Status.PollInterval)
	}
	if cfg.Status.Timeout != 250*time.Millisecond {
		t.Errorf("unexpected timeout: %v", cfg.Status.Timeout)
	}
	if cfg.ConversationLog.Enabled {
		t.Error("expected conversation log to be disabled")
	}
	if cfg.TranscriptTTL != 30*24*time.Hour {
		t.Errorf("expected fallback TTL, got %v", cfg.TranscriptTTL)
	}
}

func TestValidateRejectsZeroRateLimit(t *testing.T) {
	t.Setenv("CHAT_RATE_LIMIT", "0")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero rate limit")
	}
}

func TestValidateRejectsZeroChatTimeout(t *testing.T) {
	t.Setenv("CHAT_QUERY_TIMEOUT", "0s")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero chat query timeout")
	}
}

func TestValidateRejectsBadTimezone(t *testing.T) {
	t.Setenv("DISPLAY_TIMEZONE", "Mars/Olympus_Mons")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{}
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Fatalf("expected wildcard, got %v", got)
	}
	cfg.FrontendURL = "https://desk.example.com"
	if got := cfg.AllowedOrigins(); got[0] != "https://desk.example.com" {
		t.Fatalf("unexpected origins: %v", got)
	}
	if cfg.IsDevelopment() {
		t.Fatal("expected production mode for public frontend URL")
	}
}
