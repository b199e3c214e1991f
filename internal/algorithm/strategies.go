package algorithm

import (
	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
)

// OutcomeKind classifies the result of a single pairing strategy
type OutcomeKind int

const (
	// OutcomeComplete means the round is fully paired
	OutcomeComplete OutcomeKind = iota
	// OutcomeNeedsEscalation means the next tier should be tried
	OutcomeNeedsEscalation
	// OutcomeExhausted means no tier can pair this round
	OutcomeExhausted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeComplete:
		return "complete"
	case OutcomeNeedsEscalation:
		return "needs_escalation"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// PairingOutcome is what a strategy hands back to the round generator
type PairingOutcome struct {
	Kind    OutcomeKind
	Matches []*model.Match
	Reason  error
}

func complete(matches []*model.Match) PairingOutcome {
	return PairingOutcome{Kind: OutcomeComplete, Matches: matches}
}

func needsEscalation() PairingOutcome {
	return PairingOutcome{Kind: OutcomeNeedsEscalation}
}

func exhausted(reason error) PairingOutcome {
	return PairingOutcome{Kind: OutcomeExhausted, Reason: reason}
}

// Strategy is one tier of the pairing ladder
type Strategy interface {
	Name() string
	Pair(a *attempt) PairingOutcome
}

// greedyStrategy pairs the roster in its current order
type greedyStrategy struct{}

func (greedyStrategy) Name() string { return "greedy" }

func (greedyStrategy) Pair(a *attempt) PairingOutcome {
	matches := a.pairGreedy()
	if len(matches) == a.target {
		return complete(matches)
	}
	return needsEscalation()
}

// hardRearrangeStrategy shuffles inside score brackets and retries greedy
// pairing until the tournament-wide rearrange budget runs out
type hardRearrangeStrategy struct{}

func (hardRearrangeStrategy) Name() string { return "hard_rearrange" }

func (hardRearrangeStrategy) Pair(a *attempt) PairingOutcome {
	for a.state.RearrangeCount < a.state.MaxRearranges {
		a.state.RearrangeCount++
		a.rearranges++

		hardRearrange(a.roster, a.rng)
		matches := a.pairGreedy()
		if len(matches) == a.target {
			return complete(matches)
		}
	}
	return needsEscalation()
}

// repetitionStrategy tops up the best attempt with rematches taken from the
// committed history, most recent first. Each pair may be repeated once.
type repetitionStrategy struct{}

func (repetitionStrategy) Name() string { return "repetition" }

func (repetitionStrategy) Pair(a *attempt) PairingOutcome {
	if !a.state.AllowRepeats {
		return exhausted(apperrors.MaxRearranges(a.round, a.state.RearrangeCount))
	}

	matches := append([]*model.Match(nil), a.best...)
	matched := make(map[model.PlayerID]bool, len(a.roster))
	for _, m := range matches {
		matched[m.Player1.ID] = true
		matched[m.Player2.ID] = true
	}

	committed := a.history.Committed()
	for i := len(committed) - 1; i >= 0 && len(matches) < a.target; i-- {
		p1, p2 := committed[i].Player1, committed[i].Player2
		if matched[p1.ID] || matched[p2.ID] || !a.eligible(p1) || !a.eligible(p2) {
			continue
		}

		key := model.NewPairKey(p1.ID, p2.ID)
		if a.state.Repeated.Has(key) {
			continue
		}

		a.state.Repeated.Add(key)
		matched[p1.ID] = true
		matched[p2.ID] = true
		matches = append(matches, model.NewMatch(p1, p2, a.round, true))
		a.repeats++
	}

	if len(matches) != a.target {
		return exhausted(apperrors.RepetitionExhausted(a.round, a.target-len(matches)))
	}
	return complete(matches)
}

// DefaultStrategies returns the escalation ladder: greedy, hard rearrange,
// repetition
func DefaultStrategies() []Strategy {
	return []Strategy{greedyStrategy{}, hardRearrangeStrategy{}, repetitionStrategy{}}
}
