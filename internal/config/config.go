package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat gateway.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	StoreBackend string
	RedisAddr    string
	RedisDB      int
	DatabaseURL  string

	BrainMode    string
	BrainHTTPURL string
	BrainTimeout time.Duration

	Model         string
	MaxTokens     int
	Temperature   float64
	HistoryWindow int
	TranscriptTTL time.Duration
	SystemPrompt  string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "parley"),
		AllowAnyOrigin:   false,
		StoreBackend:     envOrDefault("STORE_BACKEND", "auto"),
		RedisAddr:        stringsTrimSpace("REDIS_ADDR"),
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		BrainMode:        envOrDefault("BRAIN_MODE", "auto"),
		BrainHTTPURL:     stringsTrimSpace("BRAIN_HTTP_URL"),
		Model:            envOrDefault("CHAT_MODEL", "gpt-4o-mini"),
		SystemPrompt:     stringsTrimSpace("CHAT_SYSTEM_PROMPT"),
		ShutdownTimeout:  15 * time.Second,
		BrainTimeout:     60 * time.Second,
		MaxTokens:        512,
		Temperature:      0.7,
		HistoryWindow:    16,
		TranscriptTTL:    24 * time.Hour,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainTimeout, err = durationFromEnv("BRAIN_TIMEOUT", cfg.BrainTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TranscriptTTL, err = durationFromEnv("CHAT_TRANSCRIPT_TTL", cfg.TranscriptTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.RedisDB, err = intFromEnv("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxTokens, err = intFromEnv("CHAT_MAX_TOKENS", cfg.MaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("CHAT_HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.Temperature, err = floatFromEnv("CHAT_TEMPERATURE", cfg.Temperature)
	if err != nil {
		return Config{}, err
	}

	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("CHAT_HISTORY_WINDOW must be positive")
	}
	if cfg.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("CHAT_MAX_TOKENS must be positive")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return Config{}, fmt.Errorf("CHAT_TEMPERATURE must be in [0, 2]")
	}
	if cfg.TranscriptTTL < time.Minute {
		return Config{}, fmt.Errorf("CHAT_TRANSCRIPT_TTL must be at least 1m")
	}
	if cfg.BrainTimeout <= 0 {
		return Config{}, fmt.Errorf("BRAIN_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
