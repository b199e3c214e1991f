package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/config"
)

// NewSnapshotStore builds the snapshot store selected by cfg.Backend
func NewSnapshotStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (SnapshotStore, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewMemorySnapshotStore(logger), nil
	case config.BackendFile:
		return NewFileSnapshotStore(cfg.File.Directory, cfg.File.Backup, logger)
	case config.BackendPostgres:
		return NewPostgresSnapshotStore(ctx, cfg.Database, logger)
	case config.BackendRedis:
		client, err := NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisSnapshotStore(client, logger), nil
	case config.BackendS3:
		return NewS3SnapshotStore(ctx, cfg.S3, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewIdempotencyStore builds the idempotency store selected by cfg.Backend.
// The Redis backend shares the storage Redis settings.
func NewIdempotencyStore(cfg config.IdempotencyConfig, redisCfg config.RedisConfig, logger *zap.Logger) (IdempotencyStore, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewInMemoryCache(cfg.MaxSize, logger), nil
	case config.BackendRedis:
		client, err := NewRedisClient(redisCfg)
		if err != nil {
			return nil, err
		}
		return NewRedisIdempotencyStore(client, logger), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Backend)
	}
}
