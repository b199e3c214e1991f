package algorithm

import (
	"math/bits"
	"math/rand"
	"sort"

	"github.com/devrev/swissmatch/internal/model"
)

// RoundsRequired returns ceil(log2(players)), the number of rounds needed to
// separate a single leader. Zero or one player needs no round.
func RoundsRequired(players int) int {
	if players <= 1 {
		return 0
	}
	return bits.Len(uint(players - 1))
}

// MatchesPerRound returns floor(players/2)
func MatchesPerRound(players int) int {
	return players / 2
}

// shuffle randomizes the roster in place
func shuffle(roster []*model.Player, rng *rand.Rand) {
	rng.Shuffle(len(roster), func(i, j int) {
		roster[i], roster[j] = roster[j], roster[i]
	})
}

// softRearrange sorts the roster by descending score, keeping the current
// order between players with the same score
func softRearrange(roster []*model.Player) {
	sort.SliceStable(roster, func(i, j int) bool {
		return roster[i].Score > roster[j].Score
	})
}

// hardRearrange shuffles every bracket of players sharing a score and then
// sorts by score again, so only the order inside brackets changes
func hardRearrange(roster []*model.Player, rng *rand.Rand) {
	var scores []float64
	brackets := make(map[float64][]*model.Player)
	for _, p := range roster {
		if _, ok := brackets[p.Score]; !ok {
			scores = append(scores, p.Score)
		}
		brackets[p.Score] = append(brackets[p.Score], p)
	}

	i := 0
	for _, score := range scores {
		bracket := brackets[score]
		if len(bracket) > 1 {
			shuffle(bracket, rng)
		}
		i += copy(roster[i:], bracket)
	}

	softRearrange(roster)
}
