package scoring

import (
	"sort"

	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
)

// ResolveWinner runs the tie-break cascade. Starting with all candidates, each
// criterion in turn keeps only the players achieving its maximum; the first
// criterion that leaves a single player decides. Each criterion is evaluated
// at most once.
func ResolveWinner(players []*model.Player, criteria []Criterion) (*model.Player, string, error) {
	candidates := append([]*model.Player(nil), players...)

	for _, c := range criteria {
		if len(candidates) == 0 {
			break
		}

		values := make([]float64, len(candidates))
		best := c.Eval(candidates[0])
		for i, p := range candidates {
			values[i] = c.Eval(p)
			if values[i] > best {
				best = values[i]
			}
		}

		kept := candidates[:0:0]
		for i, p := range candidates {
			if values[i] >= best {
				kept = append(kept, p)
			}
		}
		candidates = kept

		if len(candidates) == 1 {
			return candidates[0], c.Name, nil
		}
	}

	return nil, "", apperrors.StillTied(len(candidates))
}

// SortByScore orders players by descending score. Ties keep id order so the
// result is deterministic.
func SortByScore(players []*model.Player) []*model.Player {
	sorted := append([]*model.Player(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// SortByCriteria orders players lexicographically by descending criterion
// values, ties broken by id.
func SortByCriteria(players []*model.Player, criteria []Criterion) ([]*model.Player, [][]float64) {
	type ranked struct {
		player *model.Player
		values []float64
	}

	rows := make([]ranked, len(players))
	for i, p := range players {
		rows[i] = ranked{player: p, values: Evaluate(p, criteria)}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for k := range criteria {
			if rows[i].values[k] != rows[j].values[k] {
				return rows[i].values[k] > rows[j].values[k]
			}
		}
		return rows[i].player.ID < rows[j].player.ID
	})

	sorted := make([]*model.Player, len(rows))
	values := make([][]float64, len(rows))
	for i, r := range rows {
		sorted[i] = r.player
		values[i] = r.values
	}
	return sorted, values
}
