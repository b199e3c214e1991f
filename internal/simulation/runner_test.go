package simulation

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/config"
	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
	"github.com/devrev/swissmatch/internal/service"
)

func newService() *service.TournamentService {
	defaults := config.TournamentConfig{MaxPlayers: 256, Seed: 99}
	return service.NewTournamentService(defaults, nil, nil, nil, zap.NewNop())
}

func TestRunner_EightPlayers(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []Outcome
	)
	runner := NewRunner(newService(), Config{
		Players:      8,
		Tournaments:  6,
		AllowRepeats: true,
		Workers:      3,
		Callers:      4,
		Seed:         1,
	}, zap.NewNop())
	runner.OnOutcome = func(o Outcome) {
		mu.Lock()
		seen = append(seen, o)
		mu.Unlock()
	}

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, 6)
	assert.Equal(t, 6, summary.Tournaments)
	assert.Zero(t, summary.Failures)
	assert.Empty(t, summary.Errors)
	assert.Equal(t, summary.Tournaments, summary.Completed+summary.Problems)

	ids := map[string]bool{}
	for _, o := range seen {
		ids[o.TournamentID] = true
		if o.Ended {
			// Three rounds of four matches each
			assert.Equal(t, 12, o.Commits)
			assert.True(t, o.Tied || o.Winner != "")
		}
	}
	assert.Len(t, ids, 6)
}

func TestRunner_TwoPlayersRepeat(t *testing.T) {
	runner := NewRunner(newService(), Config{
		Players:          2,
		Tournaments:      3,
		AdditionalRounds: 1,
		AllowRepeats:     true,
		Callers:          2,
		Seed:             5,
	}, zap.NewNop())

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Completed)
	assert.Equal(t, 3, summary.RepeatedMatches)
	assert.Equal(t, 6, summary.Commits)
	assert.Zero(t, summary.ProblemRate())
}

func TestRunner_ProblemsWithoutRepeats(t *testing.T) {
	runner := NewRunner(newService(), Config{
		Players:          2,
		Tournaments:      4,
		AdditionalRounds: 1,
		AllowRepeats:     false,
		Callers:          3,
		Seed:             5,
	}, zap.NewNop())

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Problems)
	assert.Zero(t, summary.Completed)
	assert.Zero(t, summary.Failures)
	assert.Equal(t, 100.0, summary.ProblemRate())
	assert.Equal(t, 4, summary.Commits)
}

type MockTournaments struct {
	mock.Mock
}

func (m *MockTournaments) CreateTournament(ctx context.Context, req *service.CreateTournamentRequest) (*model.TournamentInfo, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TournamentInfo), args.Error(1)
}

func (m *MockTournaments) Checkout(ctx context.Context, id string) (*model.MatchView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MatchView), args.Error(1)
}

func (m *MockTournaments) Commit(ctx context.Context, id string, req *service.CommitRequest) (*service.CommitResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CommitResponse), args.Error(1)
}

func (m *MockTournaments) Winner(ctx context.Context, id string, criteria []string) (*model.Winner, error) {
	args := m.Called(ctx, id, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Winner), args.Error(1)
}

func (m *MockTournaments) RepeatedMatchCount(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func TestRunner_UnexpectedErrorsAreFailures(t *testing.T) {
	tournaments := new(MockTournaments)
	tournaments.On("CreateTournament", mock.Anything, mock.Anything).
		Return(&model.TournamentInfo{ID: "t-1"}, nil)
	tournaments.On("Checkout", mock.Anything, "t-1").
		Return(nil, apperrors.InternalError("store offline", errors.New("boom")))

	runner := NewRunner(tournaments, Config{Players: 4, Tournaments: 2, Callers: 2}, zap.NewNop())
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Failures)
	require.Len(t, summary.Errors, 2)
	assert.True(t, apperrors.HasCode(summary.Errors[0], apperrors.ErrCodeInternal))
	tournaments.AssertNotCalled(t, "Winner", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_TiedTournament(t *testing.T) {
	tournaments := new(MockTournaments)
	tournaments.On("CreateTournament", mock.Anything, mock.Anything).
		Return(&model.TournamentInfo{ID: "t-1"}, nil)
	tournaments.On("Checkout", mock.Anything, "t-1").
		Return(&model.MatchView{Player1: "p001", Player2: "p002"}, nil).Once()
	tournaments.On("Checkout", mock.Anything, "t-1").
		Return(nil, apperrors.EndOfTournament())
	tournaments.On("Commit", mock.Anything, "t-1", mock.MatchedBy(func(req *service.CommitRequest) bool {
		return req.Player1 == "p001" && req.Player2 == "p002" && req.Result.Decided()
	})).Return(&service.CommitResponse{TournamentID: "t-1"}, nil)
	tournaments.On("RepeatedMatchCount", mock.Anything, "t-1").Return(0, nil)
	tournaments.On("Winner", mock.Anything, "t-1", []string(nil)).Return(nil, apperrors.StillTied(2))

	runner := NewRunner(tournaments, Config{Players: 2, Tournaments: 1, Callers: 1}, zap.NewNop())
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.Ties)
	assert.Equal(t, 1, summary.Commits)
	tournaments.AssertExpectations(t)
}

func TestRandomResult_Weights(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	counts := map[model.Result]int{}
	const draws = 20000
	for i := 0; i < draws; i++ {
		counts[RandomResult(rng)]++
	}

	assert.InDelta(t, 0.2, float64(counts[model.ResultDraw])/draws, 0.02)
	assert.InDelta(t, 0.5, float64(counts[model.ResultPlayer1Wins])/draws, 0.02)
	assert.InDelta(t, 0.3, float64(counts[model.ResultPlayer2Wins])/draws, 0.02)
	assert.Zero(t, counts[model.ResultPending])
}

func TestSummary_Write(t *testing.T) {
	s := Summarize([]Outcome{
		{Ended: true, Commits: 4},
		{Problem: apperrors.MaxRearranges(2, 4), Commits: 2},
		{Err: errors.New("lost connection")},
	})

	assert.Equal(t, 3, s.Tournaments)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.Problems)
	assert.Equal(t, 1, s.Failures)
	assert.InDelta(t, 33.33, s.ProblemRate(), 0.01)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	assert.Contains(t, buf.String(), "problems:         1 (33.33%)")
	assert.Contains(t, buf.String(), "error: lost connection")
}
