package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
)

func playerWithOpponentScores(scores ...float64) *model.Player {
	p := model.NewPlayer("subject")
	for i, s := range scores {
		opp := model.NewPlayer(model.PlayerID(fmt.Sprintf("opp-%d", i)))
		opp.Score = s
		p.OpponentsDrawn = append(p.OpponentsDrawn, opp)
	}
	return p
}

func TestBuchholz_Trimming(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{name: "no opponents", scores: nil, want: 0},
		{name: "three opponents keep all", scores: []float64{3, 1, 2}, want: 6},
		{name: "four opponents drop one each side", scores: []float64{4, 1, 3, 2}, want: 5},
		{name: "five opponents drop one each side", scores: []float64{1, 2, 3, 4, 5}, want: 9},
		{name: "nine opponents drop one each side", scores: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, want: 35},
		{name: "ten opponents drop two each side", scores: []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, want: 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Buchholz(playerWithOpponentScores(tt.scores...)))
		})
	}
}

func TestNeustadtl(t *testing.T) {
	strong := model.NewPlayer("strong")
	strong.Score = 3
	weak := model.NewPlayer("weak")
	weak.Score = 1
	drawn := model.NewPlayer("drawn")
	drawn.Score = 2

	p := model.NewPlayer("p")
	p.RecordWin(strong)
	p.RecordWin(weak)
	p.RecordDraw(drawn)
	p.RecordLoss(strong)

	assert.Equal(t, 5.0, Neustadtl(p))
	assert.Equal(t, 2.0, Wins(p))
}

func TestCumulative(t *testing.T) {
	a := model.NewPlayer("a")
	b := model.NewPlayer("b")

	// a wins, then draws: running scores 1 and 1.5
	a.RecordWin(b)
	b.RecordLoss(a)
	a.SampleCumulative()
	b.SampleCumulative()
	a.RecordDraw(b)
	b.RecordDraw(a)
	a.SampleCumulative()
	b.SampleCumulative()

	assert.Equal(t, 2.5, Cumulative(a))
	assert.Equal(t, 0.5, Cumulative(b))
	assert.Equal(t, 1.0, OpponentCumulative(a))
	assert.Equal(t, 5.0, OpponentCumulative(b))
}

func TestResolve(t *testing.T) {
	criteria, err := Resolve([]string{"Wins", " score "})
	require.NoError(t, err)
	assert.Equal(t, []string{CriterionWins, CriterionScore}, Names(criteria))

	_, err = Resolve([]string{"score", "elo"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidArgument))

	assert.Equal(t, []string{
		CriterionScore,
		CriterionBuchholz,
		CriterionNeustadtl,
		CriterionCumulative,
		CriterionOpponentCumulative,
		CriterionWins,
	}, Names(DefaultCriteria()))
}

func TestResolveWinner(t *testing.T) {
	t.Run("first criterion decides", func(t *testing.T) {
		a, b := model.NewPlayer("a"), model.NewPlayer("b")
		a.RecordWin(b)
		b.RecordLoss(a)

		winner, criterion, err := ResolveWinner([]*model.Player{b, a}, DefaultCriteria())
		require.NoError(t, err)
		assert.Equal(t, model.PlayerID("a"), winner.ID)
		assert.Equal(t, CriterionScore, criterion)
	})

	t.Run("later criterion breaks the tie", func(t *testing.T) {
		a, b := model.NewPlayer("a"), model.NewPlayer("b")
		a.Score, b.Score = 2, 2
		a.Wins, b.Wins = 1, 2

		winner, criterion, err := ResolveWinner([]*model.Player{a, b}, []Criterion{registry[CriterionScore], registry[CriterionWins]})
		require.NoError(t, err)
		assert.Equal(t, model.PlayerID("b"), winner.ID)
		assert.Equal(t, CriterionWins, criterion)
	})

	t.Run("tie survives every criterion", func(t *testing.T) {
		a, b := model.NewPlayer("a"), model.NewPlayer("b")
		a.RecordDraw(b)
		b.RecordDraw(a)

		_, _, err := ResolveWinner([]*model.Player{a, b}, DefaultCriteria())
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStillTied))
	})

	t.Run("single player", func(t *testing.T) {
		a := model.NewPlayer("a")
		winner, criterion, err := ResolveWinner([]*model.Player{a}, DefaultCriteria())
		require.NoError(t, err)
		assert.Equal(t, a, winner)
		assert.Equal(t, CriterionScore, criterion)
	})
}

func TestSortByCriteria(t *testing.T) {
	a, b, c := model.NewPlayer("a"), model.NewPlayer("b"), model.NewPlayer("c")
	a.Score, b.Score, c.Score = 1, 2, 1
	a.Wins, b.Wins, c.Wins = 0, 2, 1

	sorted, values := SortByCriteria([]*model.Player{a, b, c}, []Criterion{registry[CriterionScore], registry[CriterionWins]})
	require.Len(t, sorted, 3)
	assert.Equal(t, []model.PlayerID{"b", "c", "a"}, []model.PlayerID{sorted[0].ID, sorted[1].ID, sorted[2].ID})
	assert.Equal(t, [][]float64{{2, 2}, {1, 1}, {1, 0}}, values)

	byScore := SortByScore([]*model.Player{c, a, b})
	assert.Equal(t, []model.PlayerID{"b", "a", "c"}, []model.PlayerID{byScore[0].ID, byScore[1].ID, byScore[2].ID})
}
