package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/config"
	"github.com/devrev/swissmatch/internal/model"
)

const (
	tournamentKeyPrefix = "swiss:tournament:"
	tournamentIndexKey  = "swiss:tournaments"
)

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisSnapshotStore keeps each snapshot under its own key and the set of
// ids in an index set
type RedisSnapshotStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisSnapshotStore wraps an existing client
func NewRedisSnapshotStore(client *redis.Client, logger *zap.Logger) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client: client,
		logger: logger,
	}
}

// Save stores the snapshot and indexes its id
func (s *RedisSnapshotStore) Save(ctx context.Context, snapshot *model.TournamentSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tournamentKeyPrefix+snapshot.ID, data, 0)
	pipe.SAdd(ctx, tournamentIndexKey, snapshot.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load retrieves a snapshot
func (s *RedisSnapshotStore) Load(ctx context.Context, tournamentID string) (*model.TournamentSnapshot, error) {
	data, err := s.client.Get(ctx, tournamentKeyPrefix+tournamentID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var snapshot model.TournamentSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// Delete removes a snapshot and its index entry
func (s *RedisSnapshotStore) Delete(ctx context.Context, tournamentID string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, tournamentKeyPrefix+tournamentID)
	pipe.SRem(ctx, tournamentIndexKey, tournamentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the indexed ids
func (s *RedisSnapshotStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, tournamentIndexKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping checks the Redis connection
func (s *RedisSnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}
