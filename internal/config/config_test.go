package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.BrainMode != "auto" {
		t.Fatalf("BrainMode = %q, want %q", cfg.BrainMode, "auto")
	}
	if cfg.BrainHTTPURL != "" {
		t.Fatalf("BrainHTTPURL = %q, want empty default", cfg.BrainHTTPURL)
	}
	if cfg.HistoryWindow != 16 {
		t.Fatalf("HistoryWindow = %d, want 16", cfg.HistoryWindow)
	}
	if cfg.TranscriptTTL != 24*time.Hour {
		t.Fatalf("TranscriptTTL = %v, want %v", cfg.TranscriptTTL, 24*time.Hour)
	}
	if cfg.Temperature != 0.7 {
		t.Fatalf("Temperature = %v, want 0.7", cfg.Temperature)
	}
}

func TestLoadUsesExplicitBrainHTTPURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("BRAIN_HTTP_URL", "http://localhost:7777/v1/chat/completions")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BrainHTTPURL != "http://localhost:7777/v1/chat/completions" {
		t.Fatalf("BrainHTTPURL = %q, want explicit value", cfg.BrainHTTPURL)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad window", "CHAT_HISTORY_WINDOW", "zero"},
		{"zero window", "CHAT_HISTORY_WINDOW", "0"},
		{"negative tokens", "CHAT_MAX_TOKENS", "-1"},
		{"temperature out of range", "CHAT_TEMPERATURE", "3.5"},
		{"bad ttl", "CHAT_TRANSCRIPT_TTL", "soon"},
		{"tiny ttl", "CHAT_TRANSCRIPT_TTL", "5s"},
		{"bad bool", "APP_ALLOW_ANY_ORIGIN", "maybe"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() should reject %s=%q", tc.key, tc.value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"STORE_BACKEND",
		"REDIS_ADDR",
		"REDIS_DB",
		"DATABASE_URL",
		"BRAIN_MODE",
		"BRAIN_HTTP_URL",
		"BRAIN_TIMEOUT",
		"CHAT_MODEL",
		"CHAT_MAX_TOKENS",
		"CHAT_TEMPERATURE",
		"CHAT_HISTORY_WINDOW",
		"CHAT_TRANSCRIPT_TTL",
		"CHAT_SYSTEM_PROMPT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
