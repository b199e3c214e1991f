package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/config"
	"github.com/devrev/swissmatch/internal/model"
)

const createSnapshotsTable = `
	CREATE TABLE IF NOT EXISTS tournament_snapshots (
		tournament_id TEXT PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		version       BIGINT NOT NULL,
		ended         BOOLEAN NOT NULL DEFAULT FALSE,
		snapshot      JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)
`

// PostgresSnapshotStore implements SnapshotStore for PostgreSQL
type PostgresSnapshotStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresSnapshotStore creates a new PostgreSQL snapshot store and
// makes sure its table exists
func NewPostgresSnapshotStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresSnapshotStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d pool_min_conns=%d pool_max_conn_lifetime=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode,
		cfg.MaxConnections, cfg.MinConnections, cfg.ConnMaxLifetime,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresSnapshotStore{
		pool:   pool,
		logger: logger,
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the snapshot table when missing
func (s *PostgresSnapshotStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("failed to create tournament_snapshots table: %w", err)
	}
	return nil
}

// Save upserts the snapshot. An older version never overwrites a newer one.
func (s *PostgresSnapshotStore) Save(ctx context.Context, snapshot *model.TournamentSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO tournament_snapshots (tournament_id, name, version, ended, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tournament_id) DO UPDATE
		SET name = EXCLUDED.name,
			version = EXCLUDED.version,
			ended = EXCLUDED.ended,
			snapshot = EXCLUDED.snapshot,
			updated_at = EXCLUDED.updated_at
		WHERE tournament_snapshots.version <= EXCLUDED.version
	`

	result, err := s.pool.Exec(ctx, query,
		snapshot.ID,
		snapshot.Name,
		snapshot.Version,
		snapshot.Ended(),
		data,
		snapshot.CreatedAt,
		snapshot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Load retrieves a snapshot
func (s *PostgresSnapshotStore) Load(ctx context.Context, tournamentID string) (*model.TournamentSnapshot, error) {
	query := `
		SELECT snapshot
		FROM tournament_snapshots
		WHERE tournament_id = $1
	`

	var data []byte
	if err := s.pool.QueryRow(ctx, query, tournamentID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snapshot model.TournamentSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// Delete removes a snapshot
func (s *PostgresSnapshotStore) Delete(ctx context.Context, tournamentID string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM tournament_snapshots WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every stored tournament id
func (s *PostgresSnapshotStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT tournament_id FROM tournament_snapshots ORDER BY tournament_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tournament id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ping checks the database connection
func (s *PostgresSnapshotStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *PostgresSnapshotStore) Close() error {
	s.pool.Close()
	return nil
}
