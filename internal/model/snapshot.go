package model

import "time"

// TournamentSnapshot is the serialized state of one tournament. Player and
// match references are stored as ids and re-linked on restore.
type TournamentSnapshot struct {
	ID               string           `json:"id" yaml:"id"`
	Name             string           `json:"name,omitempty" yaml:"name,omitempty"`
	Round            int              `json:"round" yaml:"round"`
	RoundsRequired   int              `json:"rounds_required" yaml:"rounds_required"`
	AdditionalRounds int              `json:"additional_rounds" yaml:"additional_rounds"`
	AllowRepeats     bool             `json:"allow_repeats" yaml:"allow_repeats"`
	RearrangeCount   int              `json:"rearrange_count" yaml:"rearrange_count"`
	MaxRearranges    int              `json:"max_rearranges" yaml:"max_rearranges"`
	Criteria         []string         `json:"criteria" yaml:"criteria"`
	Players          []PlayerSnapshot `json:"players" yaml:"players"`
	Generated        []MatchSnapshot  `json:"generated" yaml:"generated"`
	CheckedOut       []MatchSnapshot  `json:"checked_out" yaml:"checked_out"`
	Committed        []MatchSnapshot  `json:"committed" yaml:"committed"`
	RepeatedPairs    [][2]PlayerID    `json:"repeated_pairs" yaml:"repeated_pairs"`
	Version          int64            `json:"version" yaml:"version"`
	CreatedAt        time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" yaml:"updated_at"`
}

// PlayerSnapshot is the serialized form of a Player
type PlayerSnapshot struct {
	ID              PlayerID   `json:"id" yaml:"id"`
	Score           float64    `json:"score" yaml:"score"`
	MatchesPlayed   int        `json:"matches_played" yaml:"matches_played"`
	Byed            bool       `json:"byed" yaml:"byed"`
	CumulativeScore float64    `json:"cumulative_score" yaml:"cumulative_score"`
	Wins            int        `json:"wins" yaml:"wins"`
	OpponentsWon    []PlayerID `json:"opponents_won,omitempty" yaml:"opponents_won,omitempty"`
	OpponentsDrawn  []PlayerID `json:"opponents_drawn,omitempty" yaml:"opponents_drawn,omitempty"`
	OpponentsLost   []PlayerID `json:"opponents_lost,omitempty" yaml:"opponents_lost,omitempty"`
}

// MatchSnapshot is the serialized form of a Match. Result uses the wire
// codes, with -1 for a pending match.
type MatchSnapshot struct {
	Player1       PlayerID   `json:"player1" yaml:"player1"`
	Player2       PlayerID   `json:"player2" yaml:"player2"`
	Round         int        `json:"round" yaml:"round"`
	Repeated      bool       `json:"repeated,omitempty" yaml:"repeated,omitempty"`
	InitialScores [2]float64 `json:"initial_scores" yaml:"initial_scores"`
	Result        int        `json:"result" yaml:"result"`
}

// Ended reports whether the snapshot describes a finished tournament
func (s *TournamentSnapshot) Ended() bool {
	return s.Round >= s.RoundsRequired && len(s.Generated) == 0 && len(s.CheckedOut) == 0
}

// SnapshotPlayer serializes a player
func SnapshotPlayer(p *Player) PlayerSnapshot {
	return PlayerSnapshot{
		ID:              p.ID,
		Score:           p.Score,
		MatchesPlayed:   p.MatchesPlayed,
		Byed:            p.Byed,
		CumulativeScore: p.CumulativeScore,
		Wins:            p.Wins,
		OpponentsWon:    playerIDs(p.OpponentsWon),
		OpponentsDrawn:  playerIDs(p.OpponentsDrawn),
		OpponentsLost:   playerIDs(p.OpponentsLost),
	}
}

// SnapshotMatch serializes a match
func SnapshotMatch(m *Match) MatchSnapshot {
	return MatchSnapshot{
		Player1:       m.Player1.ID,
		Player2:       m.Player2.ID,
		Round:         m.Round,
		Repeated:      m.Repeated,
		InitialScores: m.InitialScores,
		Result:        m.result.Code(),
	}
}

// RestoreMatch rebuilds a match from its snapshot without replaying its
// result into the players.
func RestoreMatch(s MatchSnapshot, p1, p2 *Player) (*Match, error) {
	m := &Match{
		Player1:       p1,
		Player2:       p2,
		Round:         s.Round,
		Repeated:      s.Repeated,
		InitialScores: s.InitialScores,
		result:        ResultPending,
	}
	if s.Result >= 0 {
		r, err := ResultFromCode(s.Result)
		if err != nil {
			return nil, err
		}
		m.result = r
	}
	return m, nil
}

func playerIDs(players []*Player) []PlayerID {
	if len(players) == 0 {
		return nil
	}
	ids := make([]PlayerID, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}
