package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/algorithm"
	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
	"github.com/devrev/swissmatch/internal/scoring"
)

// Snapshot serializes the full coordinator state
func (c *TournamentCoordinator) Snapshot() *model.TournamentSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &model.TournamentSnapshot{
		ID:               c.id,
		Name:             c.name,
		Round:            c.round,
		RoundsRequired:   c.roundsRequired,
		AdditionalRounds: c.additionalRounds,
		AllowRepeats:     c.pairing.AllowRepeats,
		RearrangeCount:   c.pairing.RearrangeCount,
		MaxRearranges:    c.pairing.MaxRearranges,
		Criteria:         scoring.Names(c.criteria),
		Players:          make([]model.PlayerSnapshot, len(c.players)),
		Generated:        snapshotMatches(c.generated),
		CheckedOut:       snapshotMatches(c.checkedOut),
		Committed:        snapshotMatches(c.committed),
		RepeatedPairs:    make([][2]model.PlayerID, 0, len(c.pairing.Repeated)),
		Version:          c.version,
		CreatedAt:        c.createdAt,
		UpdatedAt:        c.updatedAt,
	}
	for i, p := range c.players {
		s.Players[i] = model.SnapshotPlayer(p)
	}
	for k := range c.pairing.Repeated {
		s.RepeatedPairs = append(s.RepeatedPairs, [2]model.PlayerID{k.Low, k.High})
	}
	return s
}

func snapshotMatches(matches []*model.Match) []model.MatchSnapshot {
	out := make([]model.MatchSnapshot, len(matches))
	for i, m := range matches {
		out[i] = model.SnapshotMatch(m)
	}
	return out
}

// RestoreCoordinator rebuilds a coordinator from a snapshot, re-linking
// opponents and matches to roster entries by id
func RestoreCoordinator(
	s *model.TournamentSnapshot,
	generator *algorithm.RoundGenerator,
	observer RoundObserver,
	logger *zap.Logger,
) (*TournamentCoordinator, error) {
	criteria, err := resolveCriteria(s.Criteria)
	if err != nil {
		return nil, err
	}

	c := newCoordinator(s.ID, generator, observer, logger)
	c.name = s.Name
	c.round = s.Round
	c.roundsRequired = s.RoundsRequired
	c.additionalRounds = s.AdditionalRounds
	c.criteria = criteria
	c.version = s.Version
	c.createdAt = s.CreatedAt
	c.updatedAt = s.UpdatedAt
	c.pairing = algorithm.PairingState{
		AllowRepeats:   s.AllowRepeats,
		RearrangeCount: s.RearrangeCount,
		MaxRearranges:  s.MaxRearranges,
		Repeated:       make(model.PairSet, len(s.RepeatedPairs)),
	}

	ids := make([]string, len(s.Players))
	for i, ps := range s.Players {
		ids[i] = string(ps.ID)
	}
	players, index, err := buildRoster(ids)
	if err != nil {
		return nil, err
	}
	c.players = players
	c.index = index

	resolve := func(id model.PlayerID) (*model.Player, error) {
		p, ok := index[id]
		if !ok {
			return nil, apperrors.InternalError(
				fmt.Sprintf("snapshot of %s references unknown player %q", s.ID, id), nil)
		}
		return p, nil
	}
	resolveAll := func(ids []model.PlayerID) ([]*model.Player, error) {
		if len(ids) == 0 {
			return nil, nil
		}
		out := make([]*model.Player, len(ids))
		for i, id := range ids {
			p, err := resolve(id)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	}

	for i, ps := range s.Players {
		p := players[i]
		p.Score = ps.Score
		p.MatchesPlayed = ps.MatchesPlayed
		p.Byed = ps.Byed
		p.CumulativeScore = ps.CumulativeScore
		p.Wins = ps.Wins
		if p.OpponentsWon, err = resolveAll(ps.OpponentsWon); err != nil {
			return nil, err
		}
		if p.OpponentsDrawn, err = resolveAll(ps.OpponentsDrawn); err != nil {
			return nil, err
		}
		if p.OpponentsLost, err = resolveAll(ps.OpponentsLost); err != nil {
			return nil, err
		}
	}

	restore := func(snaps []model.MatchSnapshot) ([]*model.Match, error) {
		out := make([]*model.Match, 0, len(snaps))
		for _, ms := range snaps {
			p1, err := resolve(ms.Player1)
			if err != nil {
				return nil, err
			}
			p2, err := resolve(ms.Player2)
			if err != nil {
				return nil, err
			}
			m, err := model.RestoreMatch(ms, p1, p2)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	}

	if c.generated, err = restore(s.Generated); err != nil {
		return nil, err
	}
	if c.checkedOut, err = restore(s.CheckedOut); err != nil {
		return nil, err
	}
	if c.committed, err = restore(s.Committed); err != nil {
		return nil, err
	}
	for _, m := range c.committed {
		c.committedPairs[m.Key()]++
	}
	for _, pair := range s.RepeatedPairs {
		c.pairing.Repeated.Add(model.NewPairKey(pair[0], pair[1]))
	}

	c.logger.Info("Tournament restored",
		zap.Int("players", len(players)),
		zap.Int("round", c.round),
		zap.Int64("version", c.version))

	return c, nil
}
