// Package scheduler runs periodic maintenance on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks a five-field cron expression or a descriptor such
// as "@daily".
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRun returns the first activation of schedule after from.
func NextRun(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// CleanupScheduler triggers the cleanup of expired exports, temp files and
// stale jobs. The trigger usually enqueues cleanup tasks.
type CleanupScheduler struct {
	schedule string
	trigger  func(ctx context.Context) error
	logger   *zap.Logger

	cron       *cron.Cron
	mu         sync.RWMutex
	isRunning  bool
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func NewCleanupScheduler(schedule string, trigger func(ctx context.Context) error, logger *zap.Logger) *CleanupScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupScheduler{
		schedule: schedule,
		trigger:  trigger,
		logger:   logger.Named("scheduler"),
	}
}

// Start schedules the cleanup. It stops when ctx is done or Stop is called.
func (s *CleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	s.cron = cron.New(cron.WithParser(parser))
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.ctx, s.cancelFunc = context.WithCancel(ctx)
	s.cron.Start()
	s.isRunning = true

	next, _ := NextRun(s.schedule, time.Now())
	s.logger.Info("cleanup scheduler started", zap.String("schedule", s.schedule), zap.Time("next_run", next))

	go func(done <-chan struct{}) {
		<-done
		s.Stop()
	}(s.ctx.Done())

	return nil
}

// Stop waits for a running cleanup to return and stops the scheduler.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cancelFunc()
	s.isRunning = false
	s.logger.Info("cleanup scheduler stopped")
}

// RunNow triggers a cleanup immediately.
func (s *CleanupScheduler) RunNow(ctx context.Context) error {
	return s.trigger(ctx)
}

func (s *CleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// run is called by cron only while the scheduler is running, so ctx is
// set and stays fixed.
func (s *CleanupScheduler) run() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	if err := s.trigger(ctx); err != nil {
		s.logger.Error("scheduled cleanup failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled cleanup triggered", zap.Duration("took", time.Since(start)))
}
