package service

import (
	"time"

	"github.com/devrev/swissmatch/internal/model"
)

// CreateTournamentRequest describes a new tournament. Nil optional fields
// take the configured defaults.
type CreateTournamentRequest struct {
	Name             string
	PlayerIDs        []string
	AdditionalRounds *int
	AllowRepeats     *bool
	Criteria         []string
}

// CommitRequest reports the result of a checked-out match
type CommitRequest struct {
	Player1        string
	Player2        string
	Result         model.Result
	IdempotencyKey string
}

// CommitResponse acknowledges a commit
type CommitResponse struct {
	TournamentID string          `json:"tournament_id"`
	Match        model.MatchView `json:"match"`
	Ended        bool            `json:"ended"`
	Replayed     bool            `json:"replayed,omitempty"`
	CommittedAt  time.Time       `json:"committed_at"`
}
