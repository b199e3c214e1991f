package model

import (
	"fmt"

	apperrors "github.com/devrev/swissmatch/internal/errors"
)

// Result represents the outcome of a match
type Result int

const (
	// ResultPending indicates the match has not been decided yet
	ResultPending Result = iota
	// ResultDraw indicates a draw
	ResultDraw
	// ResultPlayer1Wins indicates player 1 won
	ResultPlayer1Wins
	// ResultPlayer2Wins indicates player 2 won
	ResultPlayer2Wins
)

// Wire codes used by remote callers
const (
	ResultCodeDraw        = 0
	ResultCodePlayer1Wins = 1
	ResultCodePlayer2Wins = 2
)

// ResultFromCode converts a wire result code into a Result
func ResultFromCode(code int) (Result, error) {
	switch code {
	case ResultCodeDraw:
		return ResultDraw, nil
	case ResultCodePlayer1Wins:
		return ResultPlayer1Wins, nil
	case ResultCodePlayer2Wins:
		return ResultPlayer2Wins, nil
	default:
		return ResultPending, apperrors.InvalidArgument(
			fmt.Sprintf("a match can be decided by %d, %d or %d, got %d",
				ResultCodeDraw, ResultCodePlayer1Wins, ResultCodePlayer2Wins, code), nil)
	}
}

// Code returns the wire code of a decided result, or -1 when pending
func (r Result) Code() int {
	switch r {
	case ResultDraw:
		return ResultCodeDraw
	case ResultPlayer1Wins:
		return ResultCodePlayer1Wins
	case ResultPlayer2Wins:
		return ResultCodePlayer2Wins
	default:
		return -1
	}
}

// Decided reports whether r is a final outcome
func (r Result) Decided() bool {
	return r == ResultDraw || r == ResultPlayer1Wins || r == ResultPlayer2Wins
}

// Swap returns the same outcome seen from the other side of the board
func (r Result) Swap() Result {
	switch r {
	case ResultPlayer1Wins:
		return ResultPlayer2Wins
	case ResultPlayer2Wins:
		return ResultPlayer1Wins
	default:
		return r
	}
}

func (r Result) String() string {
	switch r {
	case ResultDraw:
		return "draw"
	case ResultPlayer1Wins:
		return "player1_wins"
	case ResultPlayer2Wins:
		return "player2_wins"
	default:
		return "pending"
	}
}

// Match is a pairing of two roster players with a write-once result
type Match struct {
	Player1       *Player
	Player2       *Player
	Round         int
	Repeated      bool
	InitialScores [2]float64
	result        Result
}

// NewMatch pairs two players, snapshotting their current scores
func NewMatch(p1, p2 *Player, round int, repeated bool) *Match {
	return &Match{
		Player1:       p1,
		Player2:       p2,
		Round:         round,
		Repeated:      repeated,
		InitialScores: [2]float64{p1.Score, p2.Score},
		result:        ResultPending,
	}
}

// Key returns the symmetric pair key of the match
func (m *Match) Key() PairKey {
	return NewPairKey(m.Player1.ID, m.Player2.ID)
}

// Result returns the current result
func (m *Match) Result() Result {
	return m.result
}

// Decide settles the match and updates both players' accumulators
func (m *Match) Decide(result Result) error {
	if m.result != ResultPending {
		return apperrors.AlreadyDecided()
	}

	switch result {
	case ResultPlayer1Wins:
		m.Player1.RecordWin(m.Player2)
		m.Player2.RecordLoss(m.Player1)
	case ResultPlayer2Wins:
		m.Player1.RecordLoss(m.Player2)
		m.Player2.RecordWin(m.Player1)
	case ResultDraw:
		m.Player1.RecordDraw(m.Player2)
		m.Player2.RecordDraw(m.Player1)
	default:
		return apperrors.InvalidArgument(fmt.Sprintf("cannot decide a match with result %s", result), nil)
	}

	m.result = result
	return nil
}

// View returns an immutable copy of the match for callers
func (m *Match) View() MatchView {
	return MatchView{
		Player1:       m.Player1.ID,
		Player2:       m.Player2.ID,
		Round:         m.Round,
		Repeated:      m.Repeated,
		InitialScores: m.InitialScores,
		Result:        m.result.String(),
	}
}

// MatchView is a detached copy of a match handed out to callers
type MatchView struct {
	Player1       PlayerID   `json:"player1"`
	Player2       PlayerID   `json:"player2"`
	Round         int        `json:"round"`
	Repeated      bool       `json:"repeated"`
	InitialScores [2]float64 `json:"initial_scores"`
	Result        string     `json:"result"`
}
