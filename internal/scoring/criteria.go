package scoring

import (
	"fmt"
	"strings"

	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
)

// Criterion names
const (
	CriterionScore              = "score"
	CriterionBuchholz           = "buchholz_score"
	CriterionNeustadtl          = "neustadtl_score"
	CriterionCumulative         = "c_score"
	CriterionOpponentCumulative = "opp_c_score"
	CriterionWins               = "wins"
)

// Criterion is a named tie-break metric
type Criterion struct {
	Name        string
	Description string
	Eval        func(*model.Player) float64
}

var registry = map[string]Criterion{
	CriterionScore:              {Name: CriterionScore, Description: "Conventional Score", Eval: Score},
	CriterionBuchholz:           {Name: CriterionBuchholz, Description: "Buchholz Score", Eval: Buchholz},
	CriterionNeustadtl:          {Name: CriterionNeustadtl, Description: "Neustadtl Score", Eval: Neustadtl},
	CriterionCumulative:         {Name: CriterionCumulative, Description: "Cumulative Score", Eval: Cumulative},
	CriterionOpponentCumulative: {Name: CriterionOpponentCumulative, Description: "Opponent's Cumulative Score", Eval: OpponentCumulative},
	CriterionWins:               {Name: CriterionWins, Description: "Number of Wins", Eval: Wins},
}

// DefaultCriteriaNames is the default tie-break order
var DefaultCriteriaNames = []string{
	CriterionScore,
	CriterionBuchholz,
	CriterionNeustadtl,
	CriterionCumulative,
	CriterionOpponentCumulative,
	CriterionWins,
}

// DefaultCriteria returns the default tie-break criteria in order
func DefaultCriteria() []Criterion {
	criteria, _ := Resolve(DefaultCriteriaNames)
	return criteria
}

// Lookup finds a criterion by name
func Lookup(name string) (Criterion, bool) {
	c, ok := registry[strings.TrimSpace(strings.ToLower(name))]
	return c, ok
}

// Resolve maps names to criteria, preserving order
func Resolve(names []string) ([]Criterion, error) {
	criteria := make([]Criterion, 0, len(names))
	for _, name := range names {
		c, ok := Lookup(name)
		if !ok {
			return nil, apperrors.InvalidArgument(fmt.Sprintf("unknown criterion %q", name), nil).
				WithDetail("criterion", name)
		}
		criteria = append(criteria, c)
	}
	return criteria, nil
}

// Names returns the names of criteria in order
func Names(criteria []Criterion) []string {
	names := make([]string, len(criteria))
	for i, c := range criteria {
		names[i] = c.Name
	}
	return names
}

// Evaluate computes every criterion for a player
func Evaluate(p *model.Player, criteria []Criterion) []float64 {
	values := make([]float64, len(criteria))
	for i, c := range criteria {
		values[i] = c.Eval(p)
	}
	return values
}
