package store

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and configures a storage backend.
type Config struct {
	Backend     string // auto|memory|redis|postgres
	RedisAddr   string
	RedisDB     int
	DatabaseURL string
}

// NewStore creates the configured backend. In auto mode it prefers redis,
// then postgres, then falls back to the in-process store.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "auto"
	}

	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB)
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case "auto":
		if strings.TrimSpace(cfg.RedisAddr) != "" {
			return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB)
		}
		if strings.TrimSpace(cfg.DatabaseURL) != "" {
			return NewPostgresStore(ctx, cfg.DatabaseURL)
		}
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}
