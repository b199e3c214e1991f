package model

import "time"

// TournamentInfo summarizes a tournament for callers
type TournamentInfo struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name,omitempty"`
	Players            int       `json:"players"`
	Round              int       `json:"round"`
	RoundsRequired     int       `json:"rounds_required"`
	MatchesPerRound    int       `json:"matches_per_round"`
	AllowRepeats       bool      `json:"allow_repeats"`
	Ended              bool      `json:"ended"`
	Generated          int       `json:"generated"`
	CheckedOut         int       `json:"checked_out"`
	Committed          int       `json:"committed"`
	RepeatedMatchCount int       `json:"repeated_match_count"`
	Criteria           []string  `json:"criteria"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Table is a ranking of the roster with one value per criterion
type Table struct {
	Criteria []string   `json:"criteria"`
	Rows     []TableRow `json:"rows"`
}

// TableRow is one player's line in a Table
type TableRow struct {
	PlayerID      PlayerID  `json:"player_id"`
	MatchesPlayed int       `json:"matches_played"`
	Byed          bool      `json:"byed"`
	Values        []float64 `json:"values"`
}

// Winner names the winning player and the criterion that decided it
type Winner struct {
	PlayerID  PlayerID `json:"player_id"`
	Criterion string   `json:"criterion"`
}
