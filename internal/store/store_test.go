package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/config"
	"github.com/devrev/swissmatch/internal/model"
)

func testSnapshot(id string, version int64) *model.TournamentSnapshot {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &model.TournamentSnapshot{
		ID:             id,
		Name:           "spring open",
		Round:          1,
		RoundsRequired: 2,
		MaxRearranges:  4,
		Criteria:       []string{"score", "wins"},
		Players: []model.PlayerSnapshot{
			{ID: "alice", Score: 1, MatchesPlayed: 1, Wins: 1, CumulativeScore: 1, OpponentsWon: []model.PlayerID{"bob"}},
			{ID: "bob", MatchesPlayed: 1, OpponentsLost: []model.PlayerID{"alice"}},
		},
		Committed: []model.MatchSnapshot{
			{Player1: "alice", Player2: "bob", Round: 0, Result: model.ResultCodePlayer1Wins},
		},
		RepeatedPairs: [][2]model.PlayerID{},
		Version:       version,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func runSnapshotStoreSuite(t *testing.T, s SnapshotStore) {
	ctx := context.Background()

	t.Run("load missing", func(t *testing.T) {
		_, err := s.Load(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, testSnapshot("t1", 3)))

		got, err := s.Load(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "spring open", got.Name)
		assert.Equal(t, int64(3), got.Version)
		assert.Equal(t, []model.PlayerID{"bob"}, got.Players[0].OpponentsWon)
		assert.Equal(t, model.ResultCodePlayer1Wins, got.Committed[0].Result)
		assert.True(t, got.CreatedAt.Equal(testSnapshot("t1", 3).CreatedAt))
	})

	t.Run("stale version rejected", func(t *testing.T) {
		err := s.Save(ctx, testSnapshot("t1", 2))
		assert.ErrorIs(t, err, ErrVersionConflict)

		require.NoError(t, s.Save(ctx, testSnapshot("t1", 4)))
		got, err := s.Load(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.Version)
	})

	t.Run("list and delete", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, testSnapshot("t2", 1)))

		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"t1", "t2"}, ids)

		require.NoError(t, s.Delete(ctx, "t1"))
		assert.ErrorIs(t, s.Delete(ctx, "t1"), ErrNotFound)

		ids, err = s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"t2"}, ids)
	})

	assert.NoError(t, s.Ping(ctx))
	assert.NoError(t, s.Close())
}

func TestMemorySnapshotStore(t *testing.T) {
	runSnapshotStoreSuite(t, NewMemorySnapshotStore(zap.NewNop()))
}

func TestFileSnapshotStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSnapshotStore(dir, true, zap.NewNop())
	require.NoError(t, err)

	runSnapshotStoreSuite(t, s)
}

func TestFileSnapshotStore_Backup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileSnapshotStore(dir, true, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, testSnapshot("t1", 1)))
	require.NoError(t, s.Save(ctx, testSnapshot("t1", 2)))

	_, err = os.Stat(filepath.Join(dir, "t1.yaml~"))
	require.NoError(t, err, "previous version should be kept as backup")

	// A corrupt main file falls back to the backup
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t1.yaml"), []byte("{{not yaml"), 0o644))
	got, err := s.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids)
}

func TestFileSnapshotStore_RejectsPathIDs(t *testing.T) {
	s, err := NewFileSnapshotStore(t.TempDir(), false, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, s.Save(ctx, testSnapshot("../escape", 1)))
	assert.Error(t, s.Save(ctx, testSnapshot(".hidden", 1)))

	for _, id := range []string{"a/b", `a\b`, ".hidden", "..", ""} {
		_, err = s.Load(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, "load %q", id)
		assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound, "delete %q", id)
	}
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(2, zap.NewNop())
	defer c.Close()

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, c.Set(ctx, "expired", []byte("x"), -time.Second))
	_, err = c.Get(ctx, "expired")
	assert.ErrorIs(t, err, ErrNotFound)

	// Full cache evicts the expired entry first
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	assert.Equal(t, 2, c.Size())
	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)

	require.NoError(t, c.Delete(ctx, "a"))
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	s, err := NewSnapshotStore(ctx, config.StorageConfig{Backend: config.BackendMemory}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemorySnapshotStore{}, s)

	s, err = NewSnapshotStore(ctx, config.StorageConfig{
		Backend: config.BackendFile,
		File:    config.FileConfig{Directory: t.TempDir()},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &FileSnapshotStore{}, s)

	_, err = NewSnapshotStore(ctx, config.StorageConfig{Backend: "tape"}, zap.NewNop())
	assert.Error(t, err)

	idem, err := NewIdempotencyStore(config.IdempotencyConfig{Backend: config.BackendMemory, MaxSize: 10}, config.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &InMemoryCache{}, idem)
	idem.Close()
}
