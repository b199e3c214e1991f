package store

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/devrev/swissmatch/internal/model"
)

// MemorySnapshotStore keeps encoded snapshots in process memory. Snapshots
// are stored encoded so callers never share state with the store.
type MemorySnapshotStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	logger *zap.Logger
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store
func NewMemorySnapshotStore(logger *zap.Logger) *MemorySnapshotStore {
	return &MemorySnapshotStore{
		data:   make(map[string][]byte),
		logger: logger,
	}
}

// Save stores the snapshot, replacing any older version
func (s *MemorySnapshotStore) Save(ctx context.Context, snapshot *model.TournamentSnapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[snapshot.ID]; ok {
		var stored model.TournamentSnapshot
		if err := yaml.Unmarshal(existing, &stored); err == nil && stored.Version > snapshot.Version {
			return ErrVersionConflict
		}
	}
	s.data[snapshot.ID] = data
	return nil
}

// Load returns a copy of the stored snapshot
func (s *MemorySnapshotStore) Load(ctx context.Context, tournamentID string) (*model.TournamentSnapshot, error) {
	s.mu.RLock()
	data, ok := s.data[tournamentID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	var snapshot model.TournamentSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Delete removes a snapshot
func (s *MemorySnapshotStore) Delete(ctx context.Context, tournamentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[tournamentID]; !ok {
		return ErrNotFound
	}
	delete(s.data, tournamentID)
	return nil
}

// List returns stored ids in lexical order
func (s *MemorySnapshotStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping always succeeds
func (s *MemorySnapshotStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *MemorySnapshotStore) Close() error {
	return nil
}
