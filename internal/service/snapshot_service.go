package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/metrics"
)

// Flusher writes changed tournaments to durable storage
type Flusher interface {
	FlushDirty(ctx context.Context) (int, error)
}

// SnapshotService periodically persists changed tournaments. Writes are
// delayed to the interval so bursts of commits cost one write.
type SnapshotService struct {
	flusher   Flusher
	interval  time.Duration
	timeout   time.Duration
	scheduler gocron.Scheduler
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(
	flusher Flusher,
	interval time.Duration,
	timeout time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*SnapshotService, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("snapshot interval must be positive, got %s", interval)
	}
	if timeout <= 0 {
		timeout = interval
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &SnapshotService{
		flusher:   flusher,
		interval:  interval,
		timeout:   timeout,
		scheduler: scheduler,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Start schedules the periodic flush
func (s *SnapshotService) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.runOnce),
		gocron.WithName("snapshot-flush"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule snapshot flush: %w", err)
	}

	s.scheduler.Start()
	s.logger.Info("Snapshot service started", zap.Duration("interval", s.interval))
	return nil
}

func (s *SnapshotService) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.Flush(ctx); err != nil {
		s.logger.Error("Periodic snapshot flush failed", zap.Error(err))
	}
}

// Flush writes every changed tournament now
func (s *SnapshotService) Flush(ctx context.Context) (int, error) {
	start := time.Now()
	written, err := s.flusher.FlushDirty(ctx)
	if s.metrics != nil {
		s.metrics.RecordSnapshotFlush(time.Since(start))
	}

	if written > 0 {
		s.logger.Debug("Snapshots flushed",
			zap.Int("written", written),
			zap.Duration("duration", time.Since(start)))
	}
	return written, err
}

// Stop stops the scheduler and performs a final flush
func (s *SnapshotService) Stop(ctx context.Context) error {
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Warn("Scheduler shutdown failed", zap.Error(err))
	}

	written, err := s.Flush(ctx)
	s.logger.Info("Snapshot service stopped", zap.Int("final_written", written))
	return err
}
