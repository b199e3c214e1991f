package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/algorithm"
	"github.com/devrev/swissmatch/internal/config"
	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/metrics"
	"github.com/devrev/swissmatch/internal/model"
	"github.com/devrev/swissmatch/internal/store"
)

// TournamentService is the registry of running tournaments. It hands out
// coordinators by handle, restoring them from the snapshot store on demand,
// and tracks which ones changed since they were last saved.
type TournamentService struct {
	mu          sync.RWMutex
	tournaments map[string]*TournamentCoordinator
	saved       map[string]int64

	snapshots   store.SnapshotStore
	idempotency *IdempotencyService
	metrics     *metrics.Metrics
	observer    RoundObserver
	defaults    config.TournamentConfig
	seeds       atomic.Int64
	logger      *zap.Logger
}

// NewTournamentService creates a new tournament service. snapshots,
// idempotency and m may be nil.
func NewTournamentService(
	defaults config.TournamentConfig,
	snapshots store.SnapshotStore,
	idempotency *IdempotencyService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *TournamentService {
	s := &TournamentService{
		tournaments: make(map[string]*TournamentCoordinator),
		saved:       make(map[string]int64),
		snapshots:   snapshots,
		idempotency: idempotency,
		metrics:     m,
		observer:    nopObserver{},
		defaults:    defaults,
		logger:      logger,
	}
	if m != nil {
		s.observer = m
	}
	return s
}

func (s *TournamentService) newGenerator() *algorithm.RoundGenerator {
	var rng *rand.Rand
	if s.defaults.Seed != 0 {
		rng = rand.New(rand.NewSource(s.defaults.Seed + s.seeds.Add(1)))
	}
	return algorithm.NewRoundGenerator(rng, s.logger)
}

func newTournamentID(name string) string {
	id := uuid.NewString()
	if name == "" {
		return id
	}
	prefix := slug.Make(name)
	if len(prefix) > 40 {
		prefix = prefix[:40]
	}
	if prefix == "" {
		return id
	}
	return prefix + "-" + id[:8]
}

// CreateTournament registers a new tournament
func (s *TournamentService) CreateTournament(ctx context.Context, req *CreateTournamentRequest) (*model.TournamentInfo, error) {
	if len(req.PlayerIDs) > s.defaults.MaxPlayers {
		return nil, apperrors.InvalidRoster(
			fmt.Sprintf("at most %d players are allowed, got %d", s.defaults.MaxPlayers, len(req.PlayerIDs)))
	}

	cfg := CoordinatorConfig{
		ID:               newTournamentID(req.Name),
		Name:             req.Name,
		PlayerIDs:        req.PlayerIDs,
		AdditionalRounds: s.defaults.AdditionalRounds,
		AllowRepeats:     s.defaults.AllowRepeats,
		Criteria:         s.defaults.Criteria,
	}
	if req.AdditionalRounds != nil {
		cfg.AdditionalRounds = *req.AdditionalRounds
	}
	if req.AllowRepeats != nil {
		cfg.AllowRepeats = *req.AllowRepeats
	}
	if len(req.Criteria) > 0 {
		cfg.Criteria = req.Criteria
	}

	c, err := NewTournamentCoordinator(cfg, s.newGenerator(), s.observer, s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tournaments[c.ID()] = c
	active := len(s.tournaments)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordTournamentCreated()
		s.metrics.SetTournamentsActive(active)
	}

	if s.snapshots != nil {
		if err := s.save(ctx, c); err != nil {
			s.logger.Warn("Failed to persist new tournament",
				zap.String("tournament_id", c.ID()),
				zap.Error(err))
		}
	}

	info := c.Info()
	return &info, nil
}

// get returns the coordinator for id, restoring it from the snapshot store
// when it is not in memory
func (s *TournamentService) get(ctx context.Context, id string) (*TournamentCoordinator, error) {
	s.mu.RLock()
	c, ok := s.tournaments[id]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	if s.snapshots == nil {
		return nil, apperrors.TournamentNotFound(id)
	}

	snap, err := s.snapshots.Load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.TournamentNotFound(id)
		}
		return nil, apperrors.InternalError("failed to load tournament", err)
	}

	restored, err := RestoreCoordinator(snap, s.newGenerator(), s.observer, s.logger)
	if err != nil {
		return nil, apperrors.InternalError("failed to restore tournament", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.tournaments[id]; ok {
		return existing, nil
	}
	s.tournaments[id] = restored
	s.saved[id] = snap.Version
	if s.metrics != nil {
		s.metrics.SetTournamentsActive(len(s.tournaments))
	}
	return restored, nil
}

// Status returns the tournament summary
func (s *TournamentService) Status(ctx context.Context, id string) (*model.TournamentInfo, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	info := c.Info()
	return &info, nil
}

// ListTournaments returns every tournament held in memory, oldest first
func (s *TournamentService) ListTournaments(ctx context.Context) []model.TournamentInfo {
	s.mu.RLock()
	coordinators := make([]*TournamentCoordinator, 0, len(s.tournaments))
	for _, c := range s.tournaments {
		coordinators = append(coordinators, c)
	}
	s.mu.RUnlock()

	infos := make([]model.TournamentInfo, len(coordinators))
	for i, c := range coordinators {
		infos[i] = c.Info()
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// DeleteTournament drops a tournament from memory and from the store
func (s *TournamentService) DeleteTournament(ctx context.Context, id string) error {
	s.mu.Lock()
	_, inMemory := s.tournaments[id]
	delete(s.tournaments, id)
	delete(s.saved, id)
	active := len(s.tournaments)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetTournamentsActive(active)
	}

	if s.snapshots != nil {
		err := s.snapshots.Delete(ctx, id)
		switch {
		case err == nil:
			inMemory = true
		case errors.Is(err, store.ErrNotFound):
		default:
			return apperrors.InternalError("failed to delete tournament snapshot", err)
		}
	}

	if !inMemory {
		return apperrors.TournamentNotFound(id)
	}

	s.logger.Info("Tournament deleted", zap.String("tournament_id", id))
	return nil
}

// Checkout reserves the next match of a tournament
func (s *TournamentService) Checkout(ctx context.Context, id string) (*model.MatchView, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	view, err := c.Checkout()
	if s.metrics != nil {
		s.metrics.RecordCheckout(err)
	}
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Commit records a match result. A request carrying an idempotency key that
// was already acknowledged gets the stored acknowledgement back.
func (s *TournamentService) Commit(ctx context.Context, id string, req *CommitRequest) (*CommitResponse, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	useKey := req.IdempotencyKey != "" && s.idempotency != nil
	if useKey {
		cached, err := s.idempotency.Get(ctx, id, req.IdempotencyKey)
		if err != nil {
			s.logger.Warn("Idempotency lookup failed",
				zap.String("tournament_id", id),
				zap.Error(err))
		} else if cached != nil {
			if s.metrics != nil {
				s.metrics.RecordIdempotencyHit()
			}
			cached.Replayed = true
			return cached, nil
		}
	}

	view, err := c.Commit(req.Player1, req.Player2, req.Result)
	if s.metrics != nil {
		s.metrics.RecordCommit(err)
	}
	if err != nil {
		return nil, err
	}

	resp := &CommitResponse{
		TournamentID: id,
		Match:        view,
		Ended:        c.Ended(),
		CommittedAt:  time.Now().UTC(),
	}

	if useKey {
		if err := s.idempotency.Store(ctx, id, req.IdempotencyKey, resp); err != nil {
			s.logger.Warn("Failed to store idempotency response",
				zap.String("tournament_id", id),
				zap.Error(err))
		}
	}

	return resp, nil
}

// CheckedOutMatches lists matches currently held by callers
func (s *TournamentService) CheckedOutMatches(ctx context.Context, id string) ([]model.MatchView, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.CheckedOutMatches(), nil
}

// TableByScore ranks the roster by score
func (s *TournamentService) TableByScore(ctx context.Context, id string) (*model.Table, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	table := c.TableByScore()
	return &table, nil
}

// TableByCriteria ranks the roster by the given criteria
func (s *TournamentService) TableByCriteria(ctx context.Context, id string, criteria []string) (*model.Table, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	table, err := c.TableByCriteria(criteria)
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// Winner resolves the tournament winner
func (s *TournamentService) Winner(ctx context.Context, id string, criteria []string) (*model.Winner, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	winner, err := c.Winner(criteria)
	if err != nil {
		return nil, err
	}
	return &winner, nil
}

// RepeatedMatchCount returns the number of repeated pairs
func (s *TournamentService) RepeatedMatchCount(ctx context.Context, id string) (int, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return 0, err
	}
	return c.RepeatedMatchCount(), nil
}

// FlushDirty saves every tournament that changed since its last save and
// returns how many were written
func (s *TournamentService) FlushDirty(ctx context.Context) (int, error) {
	if s.snapshots == nil {
		return 0, nil
	}

	s.mu.RLock()
	var dirty []*TournamentCoordinator
	for id, c := range s.tournaments {
		if saved, ok := s.saved[id]; !ok || saved != c.Version() {
			dirty = append(dirty, c)
		}
	}
	s.mu.RUnlock()

	var errs []error
	written := 0
	for _, c := range dirty {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.save(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("tournament %s: %w", c.ID(), err))
			continue
		}
		written++
	}

	return written, errors.Join(errs...)
}

func (s *TournamentService) save(ctx context.Context, c *TournamentCoordinator) error {
	snap := c.Snapshot()
	err := s.snapshots.Save(ctx, snap)
	if s.metrics != nil {
		s.metrics.RecordSnapshot(err)
	}
	if errors.Is(err, store.ErrVersionConflict) {
		s.logger.Warn("Stored snapshot is newer, skipping",
			zap.String("tournament_id", snap.ID),
			zap.Int64("version", snap.Version))
		err = nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.tournaments[snap.ID]; ok {
		if prev, seen := s.saved[snap.ID]; !seen || prev < snap.Version {
			s.saved[snap.ID] = snap.Version
		}
	}
	s.mu.Unlock()
	return nil
}

// Preload restores every stored tournament into memory
func (s *TournamentService) Preload(ctx context.Context) (int, error) {
	if s.snapshots == nil {
		return 0, nil
	}

	ids, err := s.snapshots.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list snapshots: %w", err)
	}

	loaded := 0
	var errs []error
	for _, id := range ids {
		if _, err := s.get(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("tournament %s: %w", id, err))
			continue
		}
		loaded++
	}

	s.logger.Info("Preloaded tournaments",
		zap.Int("loaded", loaded),
		zap.Int("stored", len(ids)))

	return loaded, errors.Join(errs...)
}

// Count returns the number of tournaments held in memory
func (s *TournamentService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tournaments)
}
