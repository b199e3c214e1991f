package store

import (
	"context"
	"errors"
	"time"

	"github.com/devrev/swissmatch/internal/model"
)

// ErrNotFound is returned when a key is not found
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned when a stored snapshot is newer than the one being saved
var ErrVersionConflict = errors.New("snapshot version conflict")

// SnapshotStore persists tournament snapshots
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *model.TournamentSnapshot) error
	Load(ctx context.Context, tournamentID string) (*model.TournamentSnapshot, error)
	Delete(ctx context.Context, tournamentID string) error
	// List returns the ids of every stored tournament
	List(ctx context.Context) ([]string, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// IdempotencyStore interface for idempotency key operations
type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
