package converter

import (
	"time"

	"github.com/devrev/swissmatch/internal/model"
	"github.com/devrev/swissmatch/internal/service"
)

// ServiceToHTTP handles conversion of service results to HTTP responses.
type ServiceToHTTP struct{}

// NewServiceToHTTP creates a new ServiceToHTTP converter.
func NewServiceToHTTP() *ServiceToHTTP {
	return &ServiceToHTTP{}
}

// TournamentHTTPResponse wraps a tournament summary
type TournamentHTTPResponse struct {
	Status     string               `json:"status"`
	Tournament model.TournamentInfo `json:"tournament"`
}

// TournamentListHTTPResponse lists tournament summaries
type TournamentListHTTPResponse struct {
	Status      string                 `json:"status"`
	Count       int                    `json:"count"`
	Tournaments []model.TournamentInfo `json:"tournaments"`
}

// MatchHTTPResponse carries a checked-out match
type MatchHTTPResponse struct {
	Status       string          `json:"status"`
	TournamentID string          `json:"tournament_id"`
	Match        model.MatchView `json:"match"`
}

// MatchListHTTPResponse carries the matches held by callers
type MatchListHTTPResponse struct {
	Status       string            `json:"status"`
	TournamentID string            `json:"tournament_id"`
	Matches      []model.MatchView `json:"matches"`
}

// CommitHTTPResponse acknowledges a committed result
type CommitHTTPResponse struct {
	Status       string          `json:"status"`
	TournamentID string          `json:"tournament_id"`
	Match        model.MatchView `json:"match"`
	Ended        bool            `json:"ended"`
	IsDuplicate  bool            `json:"is_duplicate"`
	CommittedAt  int64           `json:"committed_at"`
}

// TableHTTPResponse is a ranking of the roster
type TableHTTPResponse struct {
	Status       string           `json:"status"`
	TournamentID string           `json:"tournament_id"`
	Order        string           `json:"order"`
	Criteria     []string         `json:"criteria"`
	Rows         []model.TableRow `json:"rows"`
}

// WinnerHTTPResponse names the winner
type WinnerHTTPResponse struct {
	Status       string         `json:"status"`
	TournamentID string         `json:"tournament_id"`
	PlayerID     model.PlayerID `json:"player_id"`
	Criterion    string         `json:"criterion"`
}

// RepeatedMatchesHTTPResponse reports the number of repeated pairs
type RepeatedMatchesHTTPResponse struct {
	Status             string `json:"status"`
	TournamentID       string `json:"tournament_id"`
	RepeatedMatchCount int    `json:"repeated_match_count"`
}

// DeleteHTTPResponse acknowledges a deletion
type DeleteHTTPResponse struct {
	Status       string `json:"status"`
	TournamentID string `json:"tournament_id"`
	DeletedAt    int64  `json:"deleted_at"`
}

// TournamentResponse converts a tournament summary.
func (c *ServiceToHTTP) TournamentResponse(info *model.TournamentInfo) *TournamentHTTPResponse {
	return &TournamentHTTPResponse{Status: "success", Tournament: *info}
}

// TournamentListResponse converts a list of summaries.
func (c *ServiceToHTTP) TournamentListResponse(infos []model.TournamentInfo) *TournamentListHTTPResponse {
	if infos == nil {
		infos = []model.TournamentInfo{}
	}
	return &TournamentListHTTPResponse{Status: "success", Count: len(infos), Tournaments: infos}
}

// MatchResponse converts a checked-out match.
func (c *ServiceToHTTP) MatchResponse(tournamentID string, m *model.MatchView) *MatchHTTPResponse {
	return &MatchHTTPResponse{Status: "success", TournamentID: tournamentID, Match: *m}
}

// MatchListResponse converts the checked-out matches.
func (c *ServiceToHTTP) MatchListResponse(tournamentID string, matches []model.MatchView) *MatchListHTTPResponse {
	if matches == nil {
		matches = []model.MatchView{}
	}
	return &MatchListHTTPResponse{Status: "success", TournamentID: tournamentID, Matches: matches}
}

// CommitResponse converts a commit acknowledgement.
func (c *ServiceToHTTP) CommitResponse(resp *service.CommitResponse) *CommitHTTPResponse {
	return &CommitHTTPResponse{
		Status:       "success",
		TournamentID: resp.TournamentID,
		Match:        resp.Match,
		Ended:        resp.Ended,
		IsDuplicate:  resp.Replayed,
		CommittedAt:  resp.CommittedAt.Unix(),
	}
}

// TableResponse converts a table.
func (c *ServiceToHTTP) TableResponse(tournamentID, order string, table *model.Table) *TableHTTPResponse {
	rows := table.Rows
	if rows == nil {
		rows = []model.TableRow{}
	}
	return &TableHTTPResponse{
		Status:       "success",
		TournamentID: tournamentID,
		Order:        order,
		Criteria:     table.Criteria,
		Rows:         rows,
	}
}

// WinnerResponse converts a resolved winner.
func (c *ServiceToHTTP) WinnerResponse(tournamentID string, w *model.Winner) *WinnerHTTPResponse {
	return &WinnerHTTPResponse{
		Status:       "success",
		TournamentID: tournamentID,
		PlayerID:     w.PlayerID,
		Criterion:    w.Criterion,
	}
}

// RepeatedMatchesResponse converts the repeated pair count.
func (c *ServiceToHTTP) RepeatedMatchesResponse(tournamentID string, count int) *RepeatedMatchesHTTPResponse {
	return &RepeatedMatchesHTTPResponse{Status: "success", TournamentID: tournamentID, RepeatedMatchCount: count}
}

// DeleteResponse acknowledges a deletion.
func (c *ServiceToHTTP) DeleteResponse(tournamentID string) *DeleteHTTPResponse {
	return &DeleteHTTPResponse{Status: "success", TournamentID: tournamentID, DeletedAt: time.Now().Unix()}
}
