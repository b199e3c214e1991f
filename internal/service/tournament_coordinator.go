package service

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/algorithm"
	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
	"github.com/devrev/swissmatch/internal/scoring"
)

// RoundObserver is notified about round generation
type RoundObserver interface {
	OnRoundGenerated(tournamentID string, report algorithm.RoundReport)
	OnPairingFailed(tournamentID string, round int, err error)
}

type nopObserver struct{}

func (nopObserver) OnRoundGenerated(string, algorithm.RoundReport) {}
func (nopObserver) OnPairingFailed(string, int, error)             {}

// CoordinatorConfig describes a new tournament
type CoordinatorConfig struct {
	ID               string
	Name             string
	PlayerIDs        []string
	AdditionalRounds int
	AllowRepeats     bool
	// Criteria is the default tie-break order; empty means the built-in order
	Criteria []string
}

// TournamentCoordinator owns one tournament: the roster, the three match
// queues and the round counter. Every method takes the same mutex, so the
// checkout/commit protocol is linearizable.
type TournamentCoordinator struct {
	mu sync.Mutex

	id               string
	name             string
	players          []*model.Player
	index            map[model.PlayerID]*model.Player
	round            int
	roundsRequired   int
	additionalRounds int

	generated      []*model.Match
	checkedOut     []*model.Match
	committed      []*model.Match
	committedPairs map[model.PairKey]int

	pairing  algorithm.PairingState
	criteria []scoring.Criterion

	generator *algorithm.RoundGenerator
	observer  RoundObserver
	logger    *zap.Logger

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewTournamentCoordinator validates the roster and creates a tournament
// that has not generated any round yet
func NewTournamentCoordinator(
	cfg CoordinatorConfig,
	generator *algorithm.RoundGenerator,
	observer RoundObserver,
	logger *zap.Logger,
) (*TournamentCoordinator, error) {
	if cfg.AdditionalRounds < 0 {
		return nil, apperrors.InvalidArgument("additional rounds must not be negative", nil)
	}

	criteria, err := resolveCriteria(cfg.Criteria)
	if err != nil {
		return nil, err
	}

	players, index, err := buildRoster(cfg.PlayerIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := newCoordinator(cfg.ID, generator, observer, logger)
	c.name = cfg.Name
	c.players = players
	c.index = index
	c.additionalRounds = cfg.AdditionalRounds
	c.roundsRequired = roundsRequired(len(players), cfg.AdditionalRounds)
	c.pairing = algorithm.PairingState{
		AllowRepeats:  cfg.AllowRepeats,
		MaxRearranges: len(players),
		Repeated:      make(model.PairSet),
	}
	c.criteria = criteria
	c.createdAt = now
	c.updatedAt = now

	c.logger.Info("Tournament created",
		zap.String("tournament_id", c.id),
		zap.Int("players", len(players)),
		zap.Int("rounds_required", c.roundsRequired),
		zap.Bool("allow_repeats", cfg.AllowRepeats))

	return c, nil
}

func newCoordinator(id string, generator *algorithm.RoundGenerator, observer RoundObserver, logger *zap.Logger) *TournamentCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if generator == nil {
		generator = algorithm.NewRoundGenerator(nil, logger)
	}
	return &TournamentCoordinator{
		id:             id,
		committedPairs: make(map[model.PairKey]int),
		generator:      generator,
		observer:       observer,
		logger:         logger.With(zap.String("tournament_id", id)),
	}
}

func buildRoster(ids []string) ([]*model.Player, map[model.PlayerID]*model.Player, error) {
	players := make([]*model.Player, 0, len(ids))
	index := make(map[model.PlayerID]*model.Player, len(ids))

	var repeated []string
	for _, id := range ids {
		if id == "" {
			return nil, nil, apperrors.InvalidRoster("player ids must not be empty")
		}
		pid := model.PlayerID(id)
		if _, exists := index[pid]; exists {
			repeated = append(repeated, id)
			continue
		}
		p := model.NewPlayer(pid)
		players = append(players, p)
		index[pid] = p
	}

	if len(repeated) > 0 {
		return nil, nil, apperrors.RepeatedPlayerIDs(repeated)
	}
	return players, index, nil
}

func resolveCriteria(names []string) ([]scoring.Criterion, error) {
	if len(names) == 0 {
		return scoring.DefaultCriteria(), nil
	}
	return scoring.Resolve(names)
}

func roundsRequired(players, additional int) int {
	if players <= 1 {
		return 0
	}
	return algorithm.RoundsRequired(players) + additional
}

// ID returns the tournament handle
func (c *TournamentCoordinator) ID() string {
	return c.id
}

// Version increases on every state change
func (c *TournamentCoordinator) Version() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Checkout reserves the next match for a caller. When the queue is empty
// and nothing is pending, the next round is generated on demand.
func (c *TournamentCoordinator) Checkout() (model.MatchView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for generated := false; ; generated = true {
		if len(c.generated) > 0 {
			m := c.generated[0]
			c.generated = c.generated[1:]
			c.checkedOut = append(c.checkedOut, m)
			c.touch()
			return m.View(), nil
		}

		if n := len(c.checkedOut); n > 0 {
			return model.MatchView{}, apperrors.MatchesPendingCommit(n)
		}
		if c.endedLocked() {
			return model.MatchView{}, apperrors.EndOfTournament()
		}
		if generated {
			return model.MatchView{}, apperrors.InternalError(
				fmt.Sprintf("round %d produced no matches", c.round-1), nil)
		}

		if err := c.generateRoundLocked(); err != nil {
			return model.MatchView{}, err
		}
	}
}

func (c *TournamentCoordinator) generateRoundLocked() error {
	plan, err := c.generator.Generate(c.players, c.round, coordinatorHistory{c}, &c.pairing)
	if err != nil {
		c.logger.Error("Failed to generate round",
			zap.Int("round", c.round),
			zap.Error(err))
		c.observer.OnPairingFailed(c.id, c.round, err)
		return err
	}

	c.players = plan.Roster
	c.generated = plan.Matches
	c.round++
	c.touch()

	c.logger.Info("Round generated",
		zap.Int("round", plan.Report.Round),
		zap.Int("matches", plan.Report.Matches),
		zap.String("strategy", plan.Report.Strategy),
		zap.String("bye", string(plan.Report.Bye)))
	c.observer.OnRoundGenerated(c.id, plan.Report)

	return nil
}

// Commit records the result of a checked-out match. The result is read
// from the caller's point of view: player1 is the first id given.
func (c *TournamentCoordinator) Commit(player1, player2 string, result model.Result) (model.MatchView, error) {
	p1, p2 := model.PlayerID(player1), model.PlayerID(player2)
	if p1 == p2 {
		return model.MatchView{}, apperrors.InvalidArgument("a player cannot play against itself", nil)
	}
	if !result.Decided() {
		return model.MatchView{}, apperrors.InvalidArgument(fmt.Sprintf("cannot commit a %s result", result), nil)
	}

	key := model.NewPairKey(p1, p2)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.committedPairs[key] > 0 && !c.pairing.AllowRepeats {
		return model.MatchView{}, apperrors.MatchExists(player1, player2)
	}
	if c.endedLocked() {
		return model.MatchView{}, apperrors.EndOfTournament()
	}

	pos := -1
	for i, m := range c.checkedOut {
		if m.Key() == key {
			pos = i
			break
		}
	}
	if pos < 0 {
		// Already committed and not checked out again
		if c.committedPairs[key] > 0 {
			return model.MatchView{}, apperrors.MatchExists(player1, player2)
		}
		return model.MatchView{}, apperrors.MatchNotCheckedOut(player1, player2)
	}

	m := c.checkedOut[pos]
	if m.Player1.ID != p1 {
		result = result.Swap()
	}
	if err := m.Decide(result); err != nil {
		return model.MatchView{}, err
	}

	c.checkedOut = append(c.checkedOut[:pos], c.checkedOut[pos+1:]...)
	c.committed = append(c.committed, m)
	c.committedPairs[key]++
	m.Player1.SampleCumulative()
	m.Player2.SampleCumulative()
	c.touch()

	c.logger.Debug("Match committed",
		zap.String("player1", string(m.Player1.ID)),
		zap.String("player2", string(m.Player2.ID)),
		zap.String("result", m.Result().String()),
		zap.Int("round", m.Round))

	return m.View(), nil
}

// Ended reports whether every required round has been played and committed
func (c *TournamentCoordinator) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endedLocked()
}

func (c *TournamentCoordinator) endedLocked() bool {
	return c.round >= c.roundsRequired && len(c.generated) == 0 && len(c.checkedOut) == 0
}

// Round returns the number of rounds generated so far
func (c *TournamentCoordinator) Round() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round
}

// RoundsRequired returns the total number of rounds of the tournament
func (c *TournamentCoordinator) RoundsRequired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundsRequired
}

// RepeatedMatchCount returns the number of distinct pairs that were repeated
func (c *TournamentCoordinator) RepeatedMatchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pairing.Repeated)
}

// CheckedOutMatches returns the matches currently held by callers
func (c *TournamentCoordinator) CheckedOutMatches() []model.MatchView {
	c.mu.Lock()
	defer c.mu.Unlock()

	views := make([]model.MatchView, len(c.checkedOut))
	for i, m := range c.checkedOut {
		views[i] = m.View()
	}
	return views
}

// Winner resolves the tournament winner with the given criteria, or the
// tournament's own criteria when none are given
func (c *TournamentCoordinator) Winner(criteriaNames []string) (model.Winner, error) {
	criteria, err := c.criteriaFor(criteriaNames)
	if err != nil {
		return model.Winner{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.endedLocked() {
		return model.Winner{}, apperrors.StillRunning(c.round, c.roundsRequired)
	}

	winner, criterion, err := scoring.ResolveWinner(c.players, criteria)
	if err != nil {
		return model.Winner{}, err
	}
	return model.Winner{PlayerID: winner.ID, Criterion: criterion}, nil
}

// TableByScore ranks players by score, ties by id
func (c *TournamentCoordinator) TableByScore() model.Table {
	c.mu.Lock()
	defer c.mu.Unlock()

	sorted := scoring.SortByScore(c.players)
	table := model.Table{
		Criteria: []string{scoring.CriterionScore},
		Rows:     make([]model.TableRow, len(sorted)),
	}
	for i, p := range sorted {
		table.Rows[i] = model.TableRow{
			PlayerID:      p.ID,
			MatchesPlayed: p.MatchesPlayed,
			Byed:          p.Byed,
			Values:        []float64{p.Score},
		}
	}
	return table
}

// TableByCriteria ranks players lexicographically by the criteria values
func (c *TournamentCoordinator) TableByCriteria(criteriaNames []string) (model.Table, error) {
	criteria, err := c.criteriaFor(criteriaNames)
	if err != nil {
		return model.Table{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sorted, values := scoring.SortByCriteria(c.players, criteria)
	table := model.Table{
		Criteria: scoring.Names(criteria),
		Rows:     make([]model.TableRow, len(sorted)),
	}
	for i, p := range sorted {
		table.Rows[i] = model.TableRow{
			PlayerID:      p.ID,
			MatchesPlayed: p.MatchesPlayed,
			Byed:          p.Byed,
			Values:        values[i],
		}
	}
	return table, nil
}

// criteriaFor resolves names outside the lock; c.criteria never changes
// after construction
func (c *TournamentCoordinator) criteriaFor(names []string) ([]scoring.Criterion, error) {
	if len(names) == 0 {
		return c.criteria, nil
	}
	return scoring.Resolve(names)
}

// Info summarizes the tournament
func (c *TournamentCoordinator) Info() model.TournamentInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	return model.TournamentInfo{
		ID:                 c.id,
		Name:               c.name,
		Players:            len(c.players),
		Round:              c.round,
		RoundsRequired:     c.roundsRequired,
		MatchesPerRound:    algorithm.MatchesPerRound(len(c.players)),
		AllowRepeats:       c.pairing.AllowRepeats,
		Ended:              c.endedLocked(),
		Generated:          len(c.generated),
		CheckedOut:         len(c.checkedOut),
		Committed:          len(c.committed),
		RepeatedMatchCount: len(c.pairing.Repeated),
		Criteria:           scoring.Names(c.criteria),
		CreatedAt:          c.createdAt,
		UpdatedAt:          c.updatedAt,
	}
}

func (c *TournamentCoordinator) touch() {
	c.version++
	c.updatedAt = time.Now().UTC()
}

// coordinatorHistory exposes committed matches to the round generator.
// It is only used while the coordinator lock is held.
type coordinatorHistory struct {
	c *TournamentCoordinator
}

func (h coordinatorHistory) HasPlayed(a, b model.PlayerID) bool {
	return h.c.committedPairs[model.NewPairKey(a, b)] > 0
}

func (h coordinatorHistory) Committed() []*model.Match {
	return h.c.committed
}
