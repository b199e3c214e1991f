// Package scoring computes tie-break metrics from a player's own history and
// its directly recorded opponents.
package scoring

import (
	"sort"

	"github.com/devrev/swissmatch/internal/model"
)

// Score returns the conventional score
func Score(p *model.Player) float64 {
	return p.Score
}

// Buchholz returns the median Buchholz score: the sum of the opponents'
// scores with outliers trimmed. More than 9 opponents drop the two lowest and
// two highest, more than 3 drop one of each, otherwise all count.
func Buchholz(p *model.Player) float64 {
	opponents := p.Opponents()
	scores := make([]float64, len(opponents))
	for i, opp := range opponents {
		scores[i] = opp.Score
	}
	return trimmedSum(scores)
}

func trimmedSum(scores []float64) float64 {
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	trim := 0
	switch {
	case len(sorted) > 9:
		trim = 2
	case len(sorted) > 3:
		trim = 1
	}

	var sum float64
	for _, s := range sorted[trim : len(sorted)-trim] {
		sum += s
	}
	return sum
}

// Cumulative returns the sum of the running score sampled after each decided match
func Cumulative(p *model.Player) float64 {
	return p.CumulativeScore
}

// OpponentCumulative returns the sum of the opponents' cumulative scores
func OpponentCumulative(p *model.Player) float64 {
	var sum float64
	for _, opp := range p.Opponents() {
		sum += opp.CumulativeScore
	}
	return sum
}

// Neustadtl returns the sum of defeated opponents' scores plus half the sum
// of drawn opponents' scores
func Neustadtl(p *model.Player) float64 {
	var won, drawn float64
	for _, opp := range p.OpponentsWon {
		won += opp.Score
	}
	for _, opp := range p.OpponentsDrawn {
		drawn += opp.Score
	}
	return won + drawn/2
}

// Wins returns the number of decided matches won
func Wins(p *model.Player) float64 {
	return float64(p.Wins)
}
