package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"seatdesk/internal/database"
)

// Supported values of Config.Backend
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendValkey   = "valkey"
	BackendPostgres = "postgres"
)

// Config selects and configures the identity backend
type Config struct {
	Backend   string
	FilePath  string
	Namespace string
	Redis     RedisConfig
	Valkey    ValkeyConfig
	Postgres  database.Config
}

// Open builds the configured backend
func Open(ctx context.Context, cfg Config) (Backend, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendFile
	}

	slog.Info("Opening identity store", "backend", backend, "namespace", cfg.Namespace)

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		path := cfg.FilePath
		if path == "" {
			path = DefaultFilePath()
		}
		return NewFileStore(path), nil
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis, cfg.Namespace)
	case BackendValkey:
		return NewValkeyStore(cfg.Valkey, cfg.Namespace)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.Postgres, cfg.Namespace)
	default:
		return nil, fmt.Errorf("unknown identity backend %q", cfg.Backend)
	}
}
