// Package jobs provides database operations for import/export job tracking.
//
// Jobs move through pending → running → completed | failed | cancelled.
// Every mutator is guarded by the current status, so a terminal job is never
// modified again.
//
// # Interface Implementation
//
//	var _ services.JobStore = (*Repository)(nil)
//
// # Usage
//
//	repo := jobs.NewRepository(db)
//	job, err := repo.CreateJob(ownerID, entities.JobKindImport, params)
package jobs

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/entities"
)

// ErrInvalidTransition is returned when a job is not in a state that allows
// the requested change.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Repository handles all job database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new jobs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateJob stores a new pending job.
func (r *Repository) CreateJob(ownerID uint, kind entities.JobKind, params entities.JobParams) (*entities.Job, error) {
	job := &entities.Job{
		OwnerID:  ownerID,
		Kind:     kind,
		Status:   entities.JobStatusPending,
		Params:   params,
		Warnings: []string{},
		Errors:   []string{},
	}
	if err := r.db.Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob retrieves a job by id.
func (r *Repository) GetJob(id string) (*entities.Job, error) {
	var job entities.Job
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobForOwner retrieves a job only if it belongs to ownerID.
func (r *Repository) GetJobForOwner(id string, ownerID uint) (*entities.Job, error) {
	var job entities.Job
	if err := r.db.Where("id = ? AND owner_id = ?", id, ownerID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns the most recent jobs of an owner.
func (r *Repository) ListJobs(ownerID uint, limit int) ([]entities.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []entities.Job
	err := r.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

func (r *Repository) transition(id string, from []entities.JobStatus, columns []string, values *entities.Job) error {
	values.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")
	result := r.db.Model(&entities.Job{}).
		Where("id = ? AND status IN ?", id, from).
		Select(columns).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Start moves a pending job to running.
func (r *Repository) Start(id string) error {
	now := time.Now()
	return r.transition(id,
		[]entities.JobStatus{entities.JobStatusPending},
		[]string{"status", "started_at", "progress"},
		&entities.Job{Status: entities.JobStatusRunning, StartedAt: &now},
	)
}

// SetTotal records the number of items the running job will process.
func (r *Repository) SetTotal(id string, total int) error {
	return r.db.Model(&entities.Job{}).
		Where("id = ? AND status = ?", id, entities.JobStatusRunning).
		Updates(map[string]any{"total_items": total, "updated_at": time.Now()}).Error
}

// UpdateProgress stores processed/total. Progress never moves backwards.
func (r *Repository) UpdateProgress(id string, processed, total int) error {
	progress := 0
	if total > 0 {
		progress = processed * 100 / total
	}
	if progress > 99 {
		// 100 is reserved for completion.
		progress = 99
	}
	return r.db.Model(&entities.Job{}).
		Where("id = ? AND status = ? AND processed_items <= ?", id, entities.JobStatusRunning, processed).
		Updates(map[string]any{
			"processed_items": processed,
			"total_items":     total,
			"progress":        progress,
			"updated_at":      time.Now(),
		}).Error
}

// Complete finishes a running job successfully.
func (r *Repository) Complete(id string, summary map[string]any, warnings []string, filePath string, fileSize int64) error {
	now := time.Now()
	if warnings == nil {
		warnings = []string{}
	}
	return r.transition(id,
		[]entities.JobStatus{entities.JobStatusRunning},
		[]string{"status", "progress", "result_summary", "warnings", "file_path", "file_size", "completed_at"},
		&entities.Job{
			Status:        entities.JobStatusCompleted,
			Progress:      100,
			ResultSummary: summary,
			Warnings:      warnings,
			FilePath:      filePath,
			FileSize:      fileSize,
			CompletedAt:   &now,
		},
	)
}

// Fail finishes a pending or running job with an error.
func (r *Repository) Fail(id string, errMsg string, warnings []string) error {
	now := time.Now()
	if warnings == nil {
		warnings = []string{}
	}
	return r.transition(id,
		[]entities.JobStatus{entities.JobStatusPending, entities.JobStatusRunning},
		[]string{"status", "errors", "warnings", "completed_at"},
		&entities.Job{
			Status:      entities.JobStatusFailed,
			Errors:      []string{errMsg},
			Warnings:    warnings,
			CompletedAt: &now,
		},
	)
}

// RequestCancel cancels a pending job immediately and flags a running job so
// its worker stops between units. Terminal jobs are left untouched.
func (r *Repository) RequestCancel(id string) (*entities.Job, error) {
	now := time.Now()
	err := r.transition(id,
		[]entities.JobStatus{entities.JobStatusPending},
		[]string{"status", "cancel_requested", "completed_at"},
		&entities.Job{Status: entities.JobStatusCancelled, CancelRequested: true, CompletedAt: &now},
	)
	if errors.Is(err, ErrInvalidTransition) {
		err = r.transition(id,
			[]entities.JobStatus{entities.JobStatusRunning},
			[]string{"cancel_requested"},
			&entities.Job{CancelRequested: true},
		)
	}
	if err != nil {
		return nil, err
	}
	return r.GetJob(id)
}

// IsCancelled reports whether the job was cancelled or a cancel was
// requested.
func (r *Repository) IsCancelled(id string) (bool, error) {
	var job entities.Job
	err := r.db.Select("status", "cancel_requested").Where("id = ?", id).First(&job).Error
	if err != nil {
		return false, err
	}
	return job.CancelRequested || job.Status == entities.JobStatusCancelled, nil
}

// FinishCancelled moves a running job with a cancel request to cancelled,
// keeping the summary of the units committed so far.
func (r *Repository) FinishCancelled(id string, summary map[string]any, warnings []string) error {
	now := time.Now()
	if warnings == nil {
		warnings = []string{}
	}
	return r.transition(id,
		[]entities.JobStatus{entities.JobStatusRunning},
		[]string{"status", "result_summary", "warnings", "completed_at"},
		&entities.Job{
			Status:        entities.JobStatusCancelled,
			ResultSummary: summary,
			Warnings:      warnings,
			CompletedAt:   &now,
		},
	)
}

// FailStale fails running jobs that have not been updated since before.
func (r *Repository) FailStale(before time.Time) (int64, error) {
	now := time.Now()
	result := r.db.Model(&entities.Job{}).
		Where("status = ? AND updated_at < ?", entities.JobStatusRunning, before).
		Select("status", "errors", "completed_at", "updated_at").
		Updates(&entities.Job{
			Base:        entities.Base{UpdatedAt: now},
			Status:      entities.JobStatusFailed,
			Errors:      []string{"job was interrupted"},
			CompletedAt: &now,
		})
	return result.RowsAffected, result.Error
}

// ListExpiredExports returns completed export jobs that finished before
// cutoff and still point at an archive file.
func (r *Repository) ListExpiredExports(cutoff time.Time) ([]entities.Job, error) {
	var jobs []entities.Job
	err := r.db.Where("kind = ? AND status = ? AND completed_at < ? AND file_path <> ''",
		entities.JobKindExport, entities.JobStatusCompleted, cutoff).
		Order("completed_at").
		Find(&jobs).Error
	return jobs, err
}

// ClearFile forgets the archive of an export job once it was removed.
func (r *Repository) ClearFile(id string) error {
	return r.db.Model(&entities.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{"file_path": "", "file_size": 0, "updated_at": time.Now()}).Error
}
