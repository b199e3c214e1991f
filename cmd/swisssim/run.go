package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/devrev/swissmatch/internal/config"
	"github.com/devrev/swissmatch/internal/service"
	"github.com/devrev/swissmatch/internal/simulation"
)

type runOptions struct {
	players          int
	tournaments      int
	additionalRounds int
	allowRepeats     bool
	workers          int
	callers          int
	seed             int64
	backoff          time.Duration
}

// swisssim run
func runCommand() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play simulated tournaments",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`run creates the requested number of tournaments and plays
			each one to the end with random results: 20% draws, 50% wins
			for the first player and 30% wins for the second.

			Every tournament is driven by several concurrent callers that
			check out and commit matches, backing off while a round still
			has matches pending. Tournaments whose pairing cannot converge
			are reported as problems.`),
		Example: heredoc.Doc(`
			$ swisssim run --players 32 --tournaments 500
			$ swisssim run --players 7 --tournaments 100 --allow-repeats=false --callers 4`),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			return run(cmd.Context(), opts, verbose)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.players, "players", "p", 16, "Players per tournament")
	flags.IntVarP(&opts.tournaments, "tournaments", "n", 100, "Number of tournaments to play")
	flags.IntVar(&opts.additionalRounds, "additional-rounds", 0, "Rounds played on top of the minimum")
	flags.BoolVar(&opts.allowRepeats, "allow-repeats", true, "Repeat matches when no other pairing exists")
	flags.IntVarP(&opts.workers, "workers", "w", 8, "Tournaments played at once")
	flags.IntVarP(&opts.callers, "callers", "c", 3, "Concurrent callers per tournament")
	flags.Int64Var(&opts.seed, "seed", 0, "Random seed, 0 picks one from the clock")
	flags.DurationVar(&opts.backoff, "backoff", time.Millisecond, "Wait after a round still has matches pending")

	return cmd
}

func run(ctx context.Context, opts runOptions, verbose bool) error {
	if opts.players < 0 {
		return fmt.Errorf("--players must not be negative, got %d", opts.players)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger := newLogger(verbose)
	defer logger.Sync()

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	defaults := config.DefaultConfig().Tournament
	defaults.Seed = seed
	if opts.players > defaults.MaxPlayers {
		defaults.MaxPlayers = opts.players
	}
	tournaments := service.NewTournamentService(defaults, nil, nil, nil, logger)

	runner := simulation.NewRunner(tournaments, simulation.Config{
		Players:          opts.players,
		Tournaments:      opts.tournaments,
		AdditionalRounds: opts.additionalRounds,
		AllowRepeats:     opts.allowRepeats,
		Workers:          opts.workers,
		Callers:          opts.callers,
		Seed:             seed,
		Backoff:          opts.backoff,
	}, logger)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	var done atomic.Int32
	runner.OnOutcome = func(simulation.Outcome) {
		n := done.Add(1)
		s.Lock()
		s.Suffix = fmt.Sprintf(" %d/%d tournaments", n, opts.tournaments)
		s.Unlock()
	}

	fmt.Fprintf(os.Stderr, "Playing %d tournaments of %d players (seed %d)\n", opts.tournaments, opts.players, seed)
	s.Start()
	summary, err := runner.Run(ctx)
	s.Stop()
	if err != nil {
		return err
	}

	return summary.Write(os.Stdout)
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
