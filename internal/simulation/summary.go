package simulation

import (
	"fmt"
	"io"
	"time"
)

// Summary aggregates the outcomes of a simulation run
type Summary struct {
	Tournaments     int
	Completed       int
	Problems        int
	Ties            int
	RepeatedMatches int
	Commits         int
	Failures        int
	Duration        time.Duration
	// Errors holds the first few unexpected errors
	Errors []error
}

const maxSummaryErrors = 5

// Summarize folds outcomes into a Summary
func Summarize(outcomes []Outcome) *Summary {
	s := &Summary{Tournaments: len(outcomes)}
	for _, o := range outcomes {
		s.Commits += o.Commits
		s.RepeatedMatches += o.RepeatedMatches
		if o.Err != nil {
			s.Failures++
			if len(s.Errors) < maxSummaryErrors {
				s.Errors = append(s.Errors, o.Err)
			}
			continue
		}
		if o.Problem != nil {
			s.Problems++
		}
		if o.Ended {
			s.Completed++
		}
		if o.Tied {
			s.Ties++
		}
	}
	return s
}

// ProblemRate is the percentage of tournaments whose pairing did not converge
func (s *Summary) ProblemRate() float64 {
	if s.Tournaments == 0 {
		return 0
	}
	return float64(s.Problems) / float64(s.Tournaments) * 100
}

// Write prints a human readable report
func (s *Summary) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"tournaments:      %d\ncompleted:        %d\nproblems:         %d (%.2f%%)\nties:             %d\nrepeated matches: %d\ncommits:          %d\nfailures:         %d\nduration:         %s\n",
		s.Tournaments, s.Completed, s.Problems, s.ProblemRate(), s.Ties,
		s.RepeatedMatches, s.Commits, s.Failures, s.Duration.Round(time.Millisecond))
	if err != nil {
		return err
	}
	for _, e := range s.Errors {
		if _, err := fmt.Fprintf(w, "error: %v\n", e); err != nil {
			return err
		}
	}
	return nil
}
