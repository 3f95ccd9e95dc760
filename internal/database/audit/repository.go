// Package audit stores the append-only log of transfer jobs and maintenance
// actions.
package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/entities"
)

const defaultPageSize = 50

// EventFilter narrows ListEvents. Zero fields match everything.
type EventFilter struct {
	OwnerID   uint
	EventType entities.AuditEventType
	JobID     string
	Since     time.Time
	Limit     int
	Offset    int
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an audit event.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// ListEvents returns one page of matching events, newest first, and the
// total number of matches.
func (r *Repository) ListEvents(f EventFilter) ([]entities.AuditEvent, int64, error) {
	query := r.filtered(f)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset := max(f.Offset, 0)

	var events []entities.AuditEvent
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// GetEventsForJob returns every event recorded for a job in the order they
// happened.
func (r *Repository) GetEventsForJob(jobID string) ([]entities.AuditEvent, error) {
	var events []entities.AuditEvent
	err := r.filtered(EventFilter{JobID: jobID}).Order("created_at, id").Find(&events).Error
	return events, err
}

// DeleteOldEvents removes events created before olderThan and returns how
// many were deleted.
func (r *Repository) DeleteOldEvents(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}

func (r *Repository) filtered(f EventFilter) *gorm.DB {
	query := r.db.Model(&entities.AuditEvent{})
	if f.OwnerID > 0 {
		query = query.Where("owner_id = ?", f.OwnerID)
	}
	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	if f.JobID != "" {
		query = query.Where("job_id = ?", f.JobID)
	}
	if !f.Since.IsZero() {
		query = query.Where("created_at >= ?", f.Since)
	}
	return query
}
