// Package algorithm builds Swiss rounds: it orders the roster, picks a bye
// and pairs players through an escalating ladder of strategies.
package algorithm

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
)

// History answers questions about matches already played
type History interface {
	// HasPlayed reports whether a and b were paired in any earlier round
	HasPlayed(a, b model.PlayerID) bool
	// Committed returns decided matches in commit order
	Committed() []*model.Match
}

// PairingState is the pairing bookkeeping carried across rounds
type PairingState struct {
	AllowRepeats   bool
	RearrangeCount int
	MaxRearranges  int
	Repeated       model.PairSet
}

func (s *PairingState) clone() *PairingState {
	c := *s
	c.Repeated = make(model.PairSet, len(s.Repeated))
	for k := range s.Repeated {
		c.Repeated.Add(k)
	}
	return &c
}

// RoundReport describes how a round was produced
type RoundReport struct {
	Round      int
	Tier       int
	Strategy   string
	Matches    int
	Rearranges int
	Repeats    int
	Bye        model.PlayerID
	Duration   time.Duration
}

// RoundPlan is a fully paired round ready to be queued
type RoundPlan struct {
	Matches []*model.Match
	// Roster is the ordering the round was paired from
	Roster []*model.Player
	Bye    *model.Player
	Report RoundReport
}

// attempt carries the working state of one Generate call
type attempt struct {
	round   int
	target  int
	roster  []*model.Player
	bye     *model.Player
	history History
	state   *PairingState
	rng     *rand.Rand

	best       []*model.Match
	rearranges int
	repeats    int
}

// eligible reports whether p can be paired this round
func (a *attempt) eligible(p *model.Player) bool {
	return p != a.bye && p.MatchesPlayed == a.round
}

// pairGreedy walks the roster in order, pairing each unmatched player with
// the next unmatched player it has not met. The largest result is kept as
// the base for repetition.
func (a *attempt) pairGreedy() []*model.Match {
	matched := make(map[model.PlayerID]bool, len(a.roster))
	var matches []*model.Match

	for i, p1 := range a.roster {
		if matched[p1.ID] || !a.eligible(p1) {
			continue
		}
		for _, p2 := range a.roster[i+1:] {
			if matched[p2.ID] || !a.eligible(p2) {
				continue
			}
			if a.history.HasPlayed(p1.ID, p2.ID) {
				continue
			}
			matched[p1.ID] = true
			matched[p2.ID] = true
			matches = append(matches, model.NewMatch(p1, p2, a.round, false))
			break
		}
	}

	if len(matches) > len(a.best) {
		a.best = matches
	}
	return matches
}

// RoundGenerator produces the matches of one round
type RoundGenerator struct {
	strategies []Strategy
	rng        *rand.Rand
	logger     *zap.Logger
}

// NewRoundGenerator creates a generator. A nil rng is seeded from the clock.
// With no strategies the default ladder is used.
func NewRoundGenerator(rng *rand.Rand, logger *zap.Logger, strategies ...Strategy) *RoundGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &RoundGenerator{
		strategies: strategies,
		rng:        rng,
		logger:     logger,
	}
}

// Generate pairs the next round. The first round is shuffled, later rounds
// are ordered by score. On an odd roster the lowest-ranked player without a
// bye sits out and is awarded the bye once the round is fully paired.
//
// state is only updated when a round is produced. On error neither the
// players nor state are modified.
func (g *RoundGenerator) Generate(players []*model.Player, round int, history History, state *PairingState) (*RoundPlan, error) {
	start := time.Now()

	roster := append([]*model.Player(nil), players...)
	if round == 0 {
		shuffle(roster, g.rng)
	} else {
		softRearrange(roster)
	}

	a := &attempt{
		round:   round,
		target:  MatchesPerRound(len(roster)),
		roster:  roster,
		history: history,
		state:   state.clone(),
		rng:     g.rng,
	}

	if len(roster)%2 == 1 {
		bye := pickBye(roster)
		if bye == nil {
			return nil, apperrors.NoByeCandidate(round)
		}
		a.bye = bye
	}

	for tier := 0; ; tier++ {
		if tier >= len(g.strategies) {
			return nil, apperrors.UnknownAlgorithm(tier)
		}
		strategy := g.strategies[tier]

		outcome := strategy.Pair(a)
		switch outcome.Kind {
		case OutcomeComplete:
			if a.bye != nil {
				if err := a.bye.RecordBye(); err != nil {
					return nil, err
				}
			}
			*state = *a.state

			report := RoundReport{
				Round:      round,
				Tier:       tier,
				Strategy:   strategy.Name(),
				Matches:    len(outcome.Matches),
				Rearranges: a.rearranges,
				Repeats:    a.repeats,
				Duration:   time.Since(start),
			}
			if a.bye != nil {
				report.Bye = a.bye.ID
			}

			g.logger.Debug("Round generated",
				zap.Int("round", round),
				zap.String("strategy", strategy.Name()),
				zap.Int("matches", report.Matches),
				zap.Int("rearranges", report.Rearranges),
				zap.Int("repeats", report.Repeats))

			return &RoundPlan{
				Matches: outcome.Matches,
				Roster:  a.roster,
				Bye:     a.bye,
				Report:  report,
			}, nil

		case OutcomeNeedsEscalation:
			g.logger.Debug("Escalating pairing strategy",
				zap.Int("round", round),
				zap.String("strategy", strategy.Name()),
				zap.Int("best", len(a.best)),
				zap.Int("target", a.target))

		case OutcomeExhausted:
			g.logger.Warn("Pairing exhausted",
				zap.Int("round", round),
				zap.String("strategy", strategy.Name()),
				zap.Error(outcome.Reason))
			return nil, outcome.Reason

		default:
			return nil, apperrors.UnknownAlgorithm(tier)
		}
	}
}

// pickBye returns the lowest-ranked player who has not had a bye yet
func pickBye(roster []*model.Player) *model.Player {
	for i := len(roster) - 1; i >= 0; i-- {
		if !roster[i].Byed {
			return roster[i]
		}
	}
	return nil
}
