// Package simulation plays complete tournaments against the tournament
// service with random results, the way a fleet of match runners would.
package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/model"
	"github.com/devrev/swissmatch/internal/service"
	"github.com/devrev/swissmatch/internal/util/workerpool"
)

// Tournaments is the part of the tournament service a simulation drives
type Tournaments interface {
	CreateTournament(ctx context.Context, req *service.CreateTournamentRequest) (*model.TournamentInfo, error)
	Checkout(ctx context.Context, id string) (*model.MatchView, error)
	Commit(ctx context.Context, id string, req *service.CommitRequest) (*service.CommitResponse, error)
	Winner(ctx context.Context, id string, criteria []string) (*model.Winner, error)
	RepeatedMatchCount(ctx context.Context, id string) (int, error)
}

// Config controls a simulation run
type Config struct {
	Players          int
	Tournaments      int
	AdditionalRounds int
	AllowRepeats     bool
	// Workers is the number of tournaments played at once
	Workers int
	// Callers is the number of concurrent match runners per tournament
	Callers int
	Seed    int64
	// Backoff is how long a caller waits after MatchesPendingCommit
	Backoff time.Duration
}

// Outcome is the result of one simulated tournament
type Outcome struct {
	TournamentID    string
	Ended           bool
	Commits         int
	RepeatedMatches int
	Tied            bool
	Winner          model.PlayerID
	// Problem is set when pairing could not converge
	Problem error
	Err     error
}

// Runner plays simulated tournaments on a worker pool
type Runner struct {
	tournaments Tournaments
	cfg         Config
	logger      *zap.Logger

	// OnOutcome, when set, is called from the workers after each tournament
	OnOutcome func(Outcome)
}

// NewRunner creates a runner. Zero config fields get small defaults.
func NewRunner(tournaments Tournaments, cfg Config, logger *zap.Logger) *Runner {
	if cfg.Tournaments <= 0 {
		cfg.Tournaments = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Callers <= 0 {
		cfg.Callers = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Millisecond
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Runner{
		tournaments: tournaments,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run plays every tournament and summarizes them
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	pool := workerpool.New(ctx, workerpool.Config{
		Name:    "simulation",
		Workers: r.cfg.Workers,
		Logger:  r.logger,
	})

	outcomes := make([]Outcome, r.cfg.Tournaments)
	var mu sync.Mutex

	for i := 0; i < r.cfg.Tournaments; i++ {
		err := pool.Submit(ctx, workerpool.Job{
			ID: fmt.Sprintf("tournament-%d", i),
			Fn: func(ctx context.Context) error {
				outcome := r.playTournament(ctx, i)
				mu.Lock()
				outcomes[i] = outcome
				mu.Unlock()
				if r.OnOutcome != nil {
					r.OnOutcome(outcome)
				}
				return outcome.Err
			},
		})
		if err != nil {
			_ = pool.Close(time.Second)
			return nil, fmt.Errorf("failed to schedule tournament %d: %w", i, err)
		}
	}

	pool.Wait()
	if err := pool.Close(time.Second); err != nil {
		return nil, err
	}

	summary := Summarize(outcomes)
	summary.Duration = time.Since(start)

	r.logger.Info("Simulation finished",
		zap.Int("tournaments", summary.Tournaments),
		zap.Int("completed", summary.Completed),
		zap.Int("problems", summary.Problems),
		zap.Int("ties", summary.Ties),
		zap.Int("repeated_matches", summary.RepeatedMatches),
		zap.Int("failures", summary.Failures),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

func (r *Runner) playTournament(ctx context.Context, index int) Outcome {
	players := make([]string, r.cfg.Players)
	for i := range players {
		players[i] = fmt.Sprintf("p%03d", i+1)
	}
	additional := r.cfg.AdditionalRounds
	allowRepeats := r.cfg.AllowRepeats

	info, err := r.tournaments.CreateTournament(ctx, &service.CreateTournamentRequest{
		Name:             fmt.Sprintf("simulation %d", index),
		PlayerIDs:        players,
		AdditionalRounds: &additional,
		AllowRepeats:     &allowRepeats,
	})
	if err != nil {
		return Outcome{Err: err}
	}
	id := info.ID
	outcome := Outcome{TournamentID: id}

	var commits sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < r.cfg.Callers; c++ {
		rng := rand.New(rand.NewSource(r.cfg.Seed + int64(index*r.cfg.Callers+c)))
		g.Go(func() error {
			n, err := r.runCaller(gctx, id, rng)
			commits.Lock()
			outcome.Commits += n
			commits.Unlock()
			return err
		})
	}

	if err := g.Wait(); err != nil {
		if apperrors.IsPairingExhaustion(err) {
			outcome.Problem = err
			r.logger.Debug("Pairing did not converge",
				zap.String("tournament_id", id),
				zap.Error(err))
		} else {
			outcome.Err = err
			return outcome
		}
	} else {
		outcome.Ended = true
	}

	if outcome.RepeatedMatches, err = r.tournaments.RepeatedMatchCount(ctx, id); err != nil {
		outcome.Err = err
		return outcome
	}

	if outcome.Ended {
		winner, err := r.tournaments.Winner(ctx, id, nil)
		switch {
		case err == nil:
			outcome.Winner = winner.PlayerID
		case apperrors.HasCode(err, apperrors.ErrCodeStillTied):
			outcome.Tied = true
		default:
			outcome.Err = err
		}
	}
	return outcome
}

// runCaller checks out and commits matches until the tournament ends. It
// returns the number of commits it made.
func (r *Runner) runCaller(ctx context.Context, id string, rng *rand.Rand) (int, error) {
	commits := 0
	for {
		if err := ctx.Err(); err != nil {
			return commits, err
		}

		match, err := r.tournaments.Checkout(ctx, id)
		switch {
		case err == nil:
		case apperrors.HasCode(err, apperrors.ErrCodeMatchesPendingCommit):
			select {
			case <-ctx.Done():
				return commits, ctx.Err()
			case <-time.After(r.cfg.Backoff):
			}
			continue
		case apperrors.HasCode(err, apperrors.ErrCodeEndOfTournament):
			return commits, nil
		default:
			return commits, err
		}

		_, err = r.tournaments.Commit(ctx, id, &service.CommitRequest{
			Player1: string(match.Player1),
			Player2: string(match.Player2),
			Result:  RandomResult(rng),
		})
		if err != nil {
			return commits, err
		}
		commits++
	}
}

// RandomResult draws a result: 20% draw, 50% player 1, 30% player 2
func RandomResult(rng *rand.Rand) model.Result {
	switch n := rng.Intn(100); {
	case n < 20:
		return model.ResultDraw
	case n < 70:
		return model.ResultPlayer1Wins
	default:
		return model.ResultPlayer2Wins
	}
}
