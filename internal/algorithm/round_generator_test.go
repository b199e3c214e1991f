package algorithm

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
)

type testHistory struct {
	played    model.PairSet
	committed []*model.Match
}

func newTestHistory() *testHistory {
	return &testHistory{played: make(model.PairSet)}
}

func (h *testHistory) HasPlayed(a, b model.PlayerID) bool {
	return h.played.Has(model.NewPairKey(a, b))
}

func (h *testHistory) Committed() []*model.Match {
	return h.committed
}

// play decides every match as a player1 win and records it
func (h *testHistory) play(t *testing.T, matches []*model.Match) {
	t.Helper()
	for _, m := range matches {
		require.NoError(t, m.Decide(model.ResultPlayer1Wins))
		h.played.Add(m.Key())
		h.committed = append(h.committed, m)
	}
}

func newPlayers(n int) []*model.Player {
	players := make([]*model.Player, n)
	for i := range players {
		players[i] = model.NewPlayer(model.PlayerID(fmt.Sprintf("p%02d", i)))
	}
	return players
}

func newState(players int, allowRepeats bool) *PairingState {
	return &PairingState{
		AllowRepeats:  allowRepeats,
		MaxRearranges: players,
		Repeated:      make(model.PairSet),
	}
}

func newGenerator(seed int64) *RoundGenerator {
	return NewRoundGenerator(rand.New(rand.NewSource(seed)), zap.NewNop())
}

func assertValidRound(t *testing.T, plan *RoundPlan, players []*model.Player, round int) {
	t.Helper()
	seen := make(map[model.PlayerID]bool)
	for _, m := range plan.Matches {
		assert.NotEqual(t, m.Player1.ID, m.Player2.ID)
		assert.False(t, seen[m.Player1.ID], "player %s paired twice", m.Player1.ID)
		assert.False(t, seen[m.Player2.ID], "player %s paired twice", m.Player2.ID)
		seen[m.Player1.ID] = true
		seen[m.Player2.ID] = true
		assert.Equal(t, round, m.Round)
		assert.Equal(t, model.ResultPending, m.Result())
	}
	assert.Len(t, plan.Matches, MatchesPerRound(len(players)))
	if plan.Bye != nil {
		assert.False(t, seen[plan.Bye.ID], "bye player must not be paired")
	}
}

func TestRoundsRequired(t *testing.T) {
	cases := map[int]int{0: 0, 1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 16: 4, 17: 5}
	for players, want := range cases {
		assert.Equal(t, want, RoundsRequired(players), "players=%d", players)
	}
}

func TestRoundGenerator_FirstRound(t *testing.T) {
	players := newPlayers(8)
	gen := newGenerator(1)

	plan, err := gen.Generate(players, 0, newTestHistory(), newState(8, false))
	require.NoError(t, err)

	assertValidRound(t, plan, players, 0)
	assert.Nil(t, plan.Bye)
	assert.Equal(t, 0, plan.Report.Tier)
	assert.Equal(t, "greedy", plan.Report.Strategy)
	assert.Len(t, plan.Roster, 8)
}

func TestRoundGenerator_OddRosterBye(t *testing.T) {
	players := newPlayers(5)
	gen := newGenerator(2)
	history := newTestHistory()
	state := newState(5, true)

	byes := make(map[model.PlayerID]int)
	for round := 0; round < RoundsRequired(5); round++ {
		plan, err := gen.Generate(players, round, history, state)
		require.NoError(t, err)
		assertValidRound(t, plan, players, round)

		require.NotNil(t, plan.Bye)
		assert.True(t, plan.Bye.Byed)
		assert.Equal(t, plan.Bye.ID, plan.Report.Bye)
		byes[plan.Bye.ID]++

		history.play(t, plan.Matches)
		for _, p := range players {
			assert.Equal(t, round+1, p.MatchesPlayed, "player %s", p.ID)
		}
	}

	assert.Len(t, byes, RoundsRequired(5))
	for id, n := range byes {
		assert.Equal(t, 1, n, "player %s byed more than once", id)
	}
}

func TestRoundGenerator_NoByeCandidate(t *testing.T) {
	players := newPlayers(3)
	for _, p := range players {
		p.Byed = true
	}

	state := newState(3, false)
	_, err := newGenerator(3).Generate(players, 0, newTestHistory(), state)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNoByeCandidate))

	for _, p := range players {
		assert.Equal(t, 0, p.MatchesPlayed)
	}
}

func TestRoundGenerator_SecondRoundAvoidsRematches(t *testing.T) {
	players := newPlayers(4)
	gen := newGenerator(4)
	history := newTestHistory()
	state := newState(4, false)

	first, err := gen.Generate(players, 0, history, state)
	require.NoError(t, err)
	history.play(t, first.Matches)

	second, err := gen.Generate(players, 1, history, state)
	require.NoError(t, err)
	assertValidRound(t, second, players, 1)

	for _, m := range second.Matches {
		assert.False(t, m.Repeated)
		for _, prev := range first.Matches {
			assert.NotEqual(t, prev.Key(), m.Key())
		}
		// winners meet winners
		assert.Equal(t, m.InitialScores[0], m.InitialScores[1])
	}
}

func TestRoundGenerator_RepetitionFallback(t *testing.T) {
	t.Run("two players with an extra round repeat once", func(t *testing.T) {
		players := newPlayers(2)
		gen := newGenerator(5)
		history := newTestHistory()
		state := newState(2, true)

		first, err := gen.Generate(players, 0, history, state)
		require.NoError(t, err)
		history.play(t, first.Matches)

		second, err := gen.Generate(players, 1, history, state)
		require.NoError(t, err)
		require.Len(t, second.Matches, 1)
		assert.True(t, second.Matches[0].Repeated)
		assert.Equal(t, 2, second.Report.Tier)
		assert.Equal(t, 1, second.Report.Repeats)
		assert.Equal(t, 2, second.Report.Rearranges)

		assert.Len(t, state.Repeated, 1)
		assert.Equal(t, 2, state.RearrangeCount)
	})

	t.Run("repeats disallowed", func(t *testing.T) {
		players := newPlayers(2)
		gen := newGenerator(6)
		history := newTestHistory()
		state := newState(2, false)

		first, err := gen.Generate(players, 0, history, state)
		require.NoError(t, err)
		history.play(t, first.Matches)

		_, err = gen.Generate(players, 1, history, state)
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMaxRearranges))
		assert.True(t, apperrors.IsPairingExhaustion(err))
		assert.Equal(t, 0, state.RearrangeCount, "failed round must not consume budget")
	})

	t.Run("a pair repeats at most once", func(t *testing.T) {
		players := newPlayers(2)
		gen := newGenerator(7)
		history := newTestHistory()
		state := newState(2, true)

		for round := 0; round < 2; round++ {
			plan, err := gen.Generate(players, round, history, state)
			require.NoError(t, err)
			history.play(t, plan.Matches)
		}

		_, err := gen.Generate(players, 2, history, state)
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRepetitionExhausted))
	})
}

func TestRoundGenerator_FourPlayersExhaustPairs(t *testing.T) {
	players := newPlayers(4)
	gen := newGenerator(8)
	history := newTestHistory()
	state := newState(4, true)

	for round := 0; round < 3; round++ {
		plan, err := gen.Generate(players, round, history, state)
		require.NoError(t, err)
		assertValidRound(t, plan, players, round)
		assert.Equal(t, 0, plan.Report.Repeats, "round %d", round)
		history.play(t, plan.Matches)
	}

	plan, err := gen.Generate(players, 3, history, state)
	require.NoError(t, err)
	assertValidRound(t, plan, players, 3)
	assert.Equal(t, 2, plan.Report.Repeats)
	assert.Len(t, state.Repeated, 2)
}

type stuckStrategy struct{}

func (stuckStrategy) Name() string { return "stuck" }

func (stuckStrategy) Pair(*attempt) PairingOutcome { return needsEscalation() }

func TestRoundGenerator_UnknownAlgorithm(t *testing.T) {
	gen := NewRoundGenerator(rand.New(rand.NewSource(9)), zap.NewNop(), stuckStrategy{})

	_, err := gen.Generate(newPlayers(4), 0, newTestHistory(), newState(4, false))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnknownAlgorithm))
}

func TestHardRearrange_KeepsBrackets(t *testing.T) {
	players := newPlayers(6)
	for i, p := range players {
		p.Score = float64(i / 2)
	}
	rng := rand.New(rand.NewSource(10))

	for i := 0; i < 20; i++ {
		hardRearrange(players, rng)
		for j := 1; j < len(players); j++ {
			assert.GreaterOrEqual(t, players[j-1].Score, players[j].Score)
		}
	}
}
