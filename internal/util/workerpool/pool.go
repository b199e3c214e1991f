// Package workerpool runs jobs on a bounded set of goroutines.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of work. A panicking job counts as failed.
type Job struct {
	ID string
	Fn func(context.Context) error
}

// Pool executes jobs on a fixed number of workers. Submitted jobs are
// always executed; Close stops intake and waits for the queue to drain.
type Pool struct {
	name      string
	workers   int
	queueSize int
	jobs      chan Job
	ctx       context.Context
	logger    *zap.Logger

	workerWG  sync.WaitGroup
	pending   sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	active    atomic.Int32
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
}

// Config holds worker pool configuration
type Config struct {
	Name      string
	Workers   int
	QueueSize int
	Logger    *zap.Logger
}

// New starts a pool. Jobs receive ctx; cancelling it does not stop the
// workers, it only reaches the running jobs.
func New(ctx context.Context, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	p := &Pool{
		name:      cfg.Name,
		workers:   cfg.Workers,
		queueSize: cfg.QueueSize,
		jobs:      make(chan Job, cfg.QueueSize),
		ctx:       ctx,
		logger:    cfg.Logger,
	}

	for i := 0; i < p.workers; i++ {
		p.workerWG.Add(1)
		go p.worker(i)
	}

	p.logger.Debug("Worker pool started",
		zap.String("name", p.name),
		zap.Int("workers", p.workers),
		zap.Int("queue_size", p.queueSize))

	return p
}

func (p *Pool) worker(id int) {
	defer p.workerWG.Done()

	for job := range p.jobs {
		p.execute(id, job)
	}
}

func (p *Pool) execute(workerID int, job Job) {
	defer p.pending.Done()
	p.active.Add(1)
	defer p.active.Add(-1)

	start := time.Now()
	err := p.safeExecute(job)

	if err != nil {
		p.failed.Add(1)
		p.logger.Warn("Job failed",
			zap.String("pool", p.name),
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	p.completed.Add(1)
}

func (p *Pool) safeExecute(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Fn(p.ctx)
}

// Submit queues a job, blocking while the queue is full. It fails once the
// pool is closed or ctx is done.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.rejected.Add(1)
		return fmt.Errorf("worker pool '%s' is closed", p.name)
	}

	p.pending.Add(1)
	select {
	case p.jobs <- job:
		p.submitted.Add(1)
		return nil
	case <-ctx.Done():
		p.pending.Done()
		p.rejected.Add(1)
		return ctx.Err()
	}
}

// Wait blocks until every submitted job has finished
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Close stops accepting jobs and waits up to timeout for queued and
// running jobs to finish
func (p *Pool) Close(timeout time.Duration) error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.workerWG.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Debug("Worker pool stopped", zap.String("name", p.name))
		case <-time.After(timeout):
			err = fmt.Errorf("worker pool '%s' stop timeout after %v", p.name, timeout)
			p.logger.Warn("Worker pool stop timeout", zap.String("name", p.name))
		}
	})
	return err
}

// Stats returns current worker pool statistics
func (p *Pool) Stats() Stats {
	return Stats{
		Name:          p.name,
		Workers:       p.workers,
		ActiveWorkers: int(p.active.Load()),
		QueueSize:     p.queueSize,
		QueuedJobs:    len(p.jobs),
		Submitted:     p.submitted.Load(),
		Completed:     p.completed.Load(),
		Failed:        p.failed.Load(),
		Rejected:      p.rejected.Load(),
	}
}

// Stats represents worker pool statistics
type Stats struct {
	Name          string
	Workers       int
	ActiveWorkers int
	QueueSize     int
	QueuedJobs    int
	Submitted     uint64
	Completed     uint64
	Failed        uint64
	Rejected      uint64
}

// SuccessRate returns the job success rate as a percentage
func (s Stats) SuccessRate() float64 {
	finished := s.Completed + s.Failed
	if finished == 0 {
		return 100.0
	}
	return float64(s.Completed) / float64(finished) * 100.0
}
