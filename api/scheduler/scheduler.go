package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/pipeline"
)

// Retrier runs one pass over flagged extractions
type Retrier interface {
	RetryPending(ctx context.Context) (pipeline.RetryStats, error)
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron     *cron.Cron
	retrier  Retrier
	schedule string
	timeout  time.Duration

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler that retries pending extractions on
// schedule, a standard cron spec or a descriptor such as "@every 10m"
func NewScheduler(retrier Retrier, schedule string, timeout time.Duration) *Scheduler {
	if schedule == "" {
		schedule = "@every 10m"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		retrier:  retrier,
		schedule: schedule,
		timeout:  timeout,
	}
}

// Start registers the jobs and begins running them
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RetryExtractions); err != nil {
		zap.S().Errorw("failed to register extraction retry job", "schedule", s.schedule, "error", err)
		return err
	}
	s.cron.Start()
	zap.S().Infow("extraction retry scheduler started", "schedule", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("extraction retry scheduler stopped")
}

// RetryExtractions runs one retry pass. A pass that is still running when the
// next tick fires makes that tick a no-op.
func (s *Scheduler) RetryExtractions() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		zap.S().Debug("extraction retry already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	stats, err := s.retrier.RetryPending(ctx)
	if err != nil {
		zap.S().Errorw("extraction retry pass failed", "error", err)
		return
	}
	if stats.Processed > 0 {
		zap.S().Infow("extraction retry pass complete",
			"processed", stats.Processed,
			"merged", stats.Merged,
			"failed", stats.Failed,
		)
	}
}
