package services

import (
	"time"

	"go.uber.org/zap"
)

// jobTracker reports importer and exporter progress into the job row.
// Cancellation is read from the database at most once per interval.
type jobTracker struct {
	store    JobStore
	jobID    string
	logger   *zap.Logger
	interval time.Duration

	checkedAt time.Time
	cancelled bool
}

func newJobTracker(store JobStore, jobID string, logger *zap.Logger) *jobTracker {
	return &jobTracker{store: store, jobID: jobID, logger: logger, interval: time.Second}
}

func (t *jobTracker) Report(processed, total int) {
	if err := t.store.UpdateProgress(t.jobID, processed, total); err != nil {
		t.logger.Warn("failed to update job progress", zap.Error(err))
	}
}

func (t *jobTracker) Cancelled() bool {
	if t.cancelled {
		return true
	}
	if !t.checkedAt.IsZero() && time.Since(t.checkedAt) < t.interval {
		return false
	}
	t.checkedAt = time.Now()

	cancelled, err := t.store.IsCancelled(t.jobID)
	if err != nil {
		t.logger.Warn("failed to read job cancel flag", zap.Error(err))
		return false
	}
	t.cancelled = cancelled
	return cancelled
}
