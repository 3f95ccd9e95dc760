// Package audit records finished transfer jobs and maintenance actions in
// the append-only audit log.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/database/audit"
	"github.com/mrlokans/journalport/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo   *audit.Repository
	logger *zap.Logger
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	go s.record(event)
}

func (s *Service) record(event *entities.AuditEvent) {
	if err := s.repo.LogEvent(event); err != nil {
		s.logger.Warn("failed to log audit event", zap.String("action", event.Action), zap.Error(err))
	}
}

// LogJob records the outcome of a finished import or export job. counters
// is stored as JSON metadata.
func (s *Service) LogJob(job *entities.Job, action string, counters map[string]any, err error) {
	eventType := entities.AuditEventImport
	if job.Kind == entities.JobKindExport {
		eventType = entities.AuditEventExport
	}

	jobID := job.ID
	event := &entities.AuditEvent{
		OwnerID:     job.OwnerID,
		EventType:   eventType,
		Action:      action,
		Description: fmt.Sprintf("%s job %s", job.Kind, job.Status),
		JobID:       &jobID,
		Status:      entities.AuditStatusSuccess,
	}
	if len(counters) > 0 {
		if md, e := json.Marshal(counters); e == nil {
			event.Metadata = string(md)
		}
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.record(event)
}

// LogCancel records a cancel request for a job.
func (s *Service) LogCancel(job *entities.Job) {
	jobID := job.ID
	s.LogAsync(&entities.AuditEvent{
		OwnerID:     job.OwnerID,
		EventType:   entities.AuditEventCancel,
		Action:      string(job.Kind) + "_cancel",
		Description: "Cancel requested for " + string(job.Kind) + " job",
		JobID:       &jobID,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogCleanup records a maintenance run.
func (s *Service) LogCleanup(action, description string, removed int64, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventCleanup,
		Action:      action,
		Description: description,
		Metadata:    fmt.Sprintf(`{"removed":%d}`, removed),
		Status:      entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.record(event)
}

// LogUpgrade records a data upgrade step and the number of rows it changed.
func (s *Service) LogUpgrade(ownerID uint, step string, updated int, err error) {
	event := &entities.AuditEvent{
		OwnerID:     ownerID,
		EventType:   entities.AuditEventUpgrade,
		Action:      step,
		Description: fmt.Sprintf("Upgrade step %s", step),
		Metadata:    fmt.Sprintf(`{"updated":%d}`, updated),
		Status:      entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.record(event)
}

// ListEvents returns one page of audit events, newest first.
func (s *Service) ListEvents(filter audit.EventFilter) ([]entities.AuditEvent, int64, error) {
	return s.repo.ListEvents(filter)
}

// GetEventsForJob returns every event recorded for a job.
func (s *Service) GetEventsForJob(jobID string) ([]entities.AuditEvent, error) {
	return s.repo.GetEventsForJob(jobID)
}

// DeleteOldEvents removes events older than the retention period.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	return s.repo.DeleteOldEvents(time.Now().Add(-retention))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
