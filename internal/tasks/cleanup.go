package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/services"
)

// Fallback retention periods for tasks enqueued without one.
const (
	DefaultExportRetentionDays = 7
	DefaultAuditRetentionDays  = 30
)

// ExportCleaner removes expired export archives and leftover temp files.
type ExportCleaner interface {
	Cleanup(ctx context.Context, retention, staleAfter time.Duration) (*services.CleanupResult, error)
}

// AuditEventCleaner deletes audit events past retention.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// cleanupQueue is the shared configuration of maintenance queues: a few
// retries with backoff, since a later run does the same work anyway.
func cleanupQueue(name string, timeout time.Duration) backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        name,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     timeout,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func days(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * 24 * time.Hour
}

// CleanupExportsTask removes export archives older than the retention period
// and fails jobs that stopped reporting progress. A zero StaleAfterMinutes
// leaves running jobs alone.
type CleanupExportsTask struct {
	RetentionDays     int `json:"retention_days"`
	StaleAfterMinutes int `json:"stale_after_minutes"`
}

// Config returns the queue configuration for export cleanup tasks.
func (t CleanupExportsTask) Config() backlite.QueueConfig {
	return cleanupQueue("cleanup_exports", 10*time.Minute)
}

// CleanupExportsProcessor creates a processor function for CleanupExportsTask.
func CleanupExportsProcessor(cleaner ExportCleaner, logger *zap.Logger) backlite.QueueProcessor[CleanupExportsTask] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, task CleanupExportsTask) error {
		if cleaner == nil {
			return fmt.Errorf("export cleaner not configured")
		}
		result, err := cleaner.Cleanup(ctx,
			days(task.RetentionDays, DefaultExportRetentionDays),
			time.Duration(task.StaleAfterMinutes)*time.Minute)
		if err != nil {
			return fmt.Errorf("cleanup exports: %w", err)
		}
		logger.Info("export cleanup finished",
			zap.Int("exports_removed", result.ExportsRemoved),
			zap.Int64("stale_jobs_failed", result.StaleJobsFailed))
		return nil
	}
}

// NewCleanupExportsQueue creates a backlite queue for export cleanup tasks.
func NewCleanupExportsQueue(cleaner ExportCleaner, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(CleanupExportsProcessor(cleaner, logger))
}

// CleanupAuditEventsTask removes job audit events older than the retention
// period.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for audit cleanup tasks.
func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return cleanupQueue("cleanup_audit_events", 2*time.Minute)
}

// CleanupAuditEventsProcessor creates a processor function for CleanupAuditEventsTask.
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner, logger *zap.Logger) backlite.QueueProcessor[CleanupAuditEventsTask] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return fmt.Errorf("audit event cleaner not configured")
		}
		deleted, err := cleaner.DeleteOldEvents(days(task.RetentionDays, DefaultAuditRetentionDays))
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}
		logger.Info("audit cleanup finished", zap.Int64("deleted", deleted))
		return nil
	}
}

// NewCleanupAuditEventsQueue creates a backlite queue for audit cleanup tasks.
func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner, logger))
}
