package model

import (
	apperrors "github.com/devrev/swissmatch/internal/errors"
)

// PlayerID is the caller-supplied opaque identifier of a competitor
type PlayerID string

// Player is a competitor's running accumulator. Players are owned by a
// single tournament coordinator and mutated only under its lock.
type Player struct {
	ID              PlayerID
	Score           float64
	MatchesPlayed   int
	Byed            bool
	OpponentsWon    []*Player
	OpponentsDrawn  []*Player
	OpponentsLost   []*Player
	CumulativeScore float64
	Wins            int
}

// NewPlayer creates a player with an empty history
func NewPlayer(id PlayerID) *Player {
	return &Player{ID: id}
}

// RecordWin marks a won game against opponent
func (p *Player) RecordWin(opponent *Player) {
	p.MatchesPlayed++
	p.Score += 1.0
	p.Wins++
	p.OpponentsWon = append(p.OpponentsWon, opponent)
}

// RecordDraw marks a drawn game against opponent
func (p *Player) RecordDraw(opponent *Player) {
	p.MatchesPlayed++
	p.Score += 0.5
	p.OpponentsDrawn = append(p.OpponentsDrawn, opponent)
}

// RecordLoss marks a lost game against opponent
func (p *Player) RecordLoss(opponent *Player) {
	p.MatchesPlayed++
	p.OpponentsLost = append(p.OpponentsLost, opponent)
}

// RecordBye awards a bye. A player receives at most one bye per tournament.
func (p *Player) RecordBye() error {
	if p.Byed {
		return apperrors.AlreadyByed(string(p.ID))
	}
	p.MatchesPlayed++
	p.Score += 1.0
	p.Byed = true
	return nil
}

// SampleCumulative adds the current score to the cumulative score
func (p *Player) SampleCumulative() {
	p.CumulativeScore += p.Score
}

// Opponents returns every decided opponent: drawn, then won, then lost
func (p *Player) Opponents() []*Player {
	opponents := make([]*Player, 0, len(p.OpponentsDrawn)+len(p.OpponentsWon)+len(p.OpponentsLost))
	opponents = append(opponents, p.OpponentsDrawn...)
	opponents = append(opponents, p.OpponentsWon...)
	opponents = append(opponents, p.OpponentsLost...)
	return opponents
}

// DecidedMatches returns the number of decided (non-bye) matches
func (p *Player) DecidedMatches() int {
	return len(p.OpponentsWon) + len(p.OpponentsDrawn) + len(p.OpponentsLost)
}
