package http

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/services"
)

// JobService is the part of the transfer service the jobs API needs.
type JobService interface {
	StageUpload(r io.Reader) (string, error)
	CreateImportJob(ownerID uint, sourceType, archivePath string) (*entities.Job, error)
	CreateExportJob(ownerID uint, scope string, journalIDs []string) (*entities.Job, error)
	GetJob(ownerID uint, jobID string) (*entities.Job, error)
	ListJobs(ownerID uint, limit int) ([]entities.Job, error)
	CancelJob(ownerID uint, jobID string) (*entities.Job, error)
	ExportFile(ownerID uint, jobID string) (string, error)
}

// JobEventLister returns the audit trail of a job.
type JobEventLister interface {
	GetEventsForJob(jobID string) ([]entities.AuditEvent, error)
}

// JobsController exposes import and export jobs.
type JobsController struct {
	service   JobService
	events    JobEventLister
	maxUpload int64
	logger    *zap.Logger
}

// NewJobsController creates a JobsController. maxUpload bounds the size of
// an uploaded archive; zero disables the check.
func NewJobsController(service JobService, events JobEventLister, maxUpload int64, logger *zap.Logger) *JobsController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobsController{service: service, events: events, maxUpload: maxUpload, logger: logger}
}

// JobResponse is the public view of a job. Server paths are not exposed.
type JobResponse struct {
	ID              string         `json:"id"`
	Kind            string         `json:"kind"`
	Status          string         `json:"status"`
	Progress        int            `json:"progress"`
	ProcessedItems  int            `json:"processed_items"`
	TotalItems      int            `json:"total_items"`
	CancelRequested bool           `json:"cancel_requested"`
	SourceType      string         `json:"source_type,omitempty"`
	Scope           string         `json:"scope,omitempty"`
	JournalIDs      []string       `json:"journal_ids,omitempty"`
	Summary         map[string]any `json:"result_summary,omitempty"`
	Warnings        []string       `json:"warnings"`
	Errors          []string       `json:"errors"`
	FileSize        int64          `json:"file_size,omitempty"`
	DownloadURL     string         `json:"download_url,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

func newJobResponse(job *entities.Job) JobResponse {
	resp := JobResponse{
		ID:              job.ID,
		Kind:            string(job.Kind),
		Status:          string(job.Status),
		Progress:        job.Progress,
		ProcessedItems:  job.ProcessedItems,
		TotalItems:      job.TotalItems,
		CancelRequested: job.CancelRequested,
		SourceType:      job.Params.SourceType,
		Scope:           job.Params.Scope,
		JournalIDs:      job.Params.JournalIDs,
		Summary:         job.ResultSummary,
		Warnings:        job.Warnings,
		Errors:          job.Errors,
		FileSize:        job.FileSize,
		CreatedAt:       job.CreatedAt,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if job.Kind == entities.JobKindExport && job.Status == entities.JobStatusCompleted && job.FilePath != "" {
		resp.DownloadURL = "/api/jobs/" + job.ID + "/download"
	}
	return resp
}

// CreateImport handles POST /api/imports
// Expects a multipart form with the archive in "file" and an optional
// "source_type" of auto, native or dayone.
func (jc *JobsController) CreateImport(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "archive file is required")
		return
	}
	if jc.maxUpload > 0 && header.Size > jc.maxUpload {
		respondError(c, http.StatusRequestEntityTooLarge, "too_large", "archive exceeds the upload limit")
		return
	}

	file, err := header.Open()
	if err != nil {
		respondBadRequest(c, "failed to read uploaded file")
		return
	}
	defer file.Close()

	path, err := jc.service.StageUpload(file)
	if err != nil {
		respondInternalError(c, jc.logger, err, "stage upload")
		return
	}

	job, err := jc.service.CreateImportJob(GetOwnerID(c), c.PostForm("source_type"), path)
	if err != nil {
		_ = os.Remove(path)
		jc.respondServiceError(c, err, "create import job")
		return
	}

	jc.logger.Info("import job created",
		zap.String("job_id", job.ID),
		zap.Uint("owner_id", job.OwnerID),
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)
	respondAccepted(c, "import job created", newJobResponse(job))
}

// CreateExportRequest is the body of POST /api/exports.
type CreateExportRequest struct {
	Scope      string   `json:"scope"`
	JournalIDs []string `json:"journal_ids"`
}

// CreateExport handles POST /api/exports
func (jc *JobsController) CreateExport(c *gin.Context) {
	var req CreateExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	job, err := jc.service.CreateExportJob(GetOwnerID(c), req.Scope, req.JournalIDs)
	if err != nil {
		jc.respondServiceError(c, err, "create export job")
		return
	}

	jc.logger.Info("export job created", zap.String("job_id", job.ID), zap.Uint("owner_id", job.OwnerID))
	respondAccepted(c, "export job created", newJobResponse(job))
}

// ListJobs handles GET /api/jobs
func (jc *JobsController) ListJobs(c *gin.Context) {
	limit, ok := parseLimit(c, 20, 100)
	if !ok {
		return
	}

	list, err := jc.service.ListJobs(GetOwnerID(c), limit)
	if err != nil {
		respondInternalError(c, jc.logger, err, "list jobs")
		return
	}

	jobs := make([]JobResponse, len(list))
	for i := range list {
		jobs[i] = newJobResponse(&list[i])
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetJob handles GET /api/jobs/:id
func (jc *JobsController) GetJob(c *gin.Context) {
	job, err := jc.service.GetJob(GetOwnerID(c), c.Param("id"))
	if err != nil {
		jc.respondServiceError(c, err, "get job")
		return
	}
	c.JSON(http.StatusOK, newJobResponse(job))
}

// CancelJob handles POST /api/jobs/:id/cancel
func (jc *JobsController) CancelJob(c *gin.Context) {
	job, err := jc.service.CancelJob(GetOwnerID(c), c.Param("id"))
	if err != nil {
		jc.respondServiceError(c, err, "cancel job")
		return
	}
	respondAccepted(c, "cancellation requested", newJobResponse(job))
}

// Download handles GET /api/jobs/:id/download
func (jc *JobsController) Download(c *gin.Context) {
	path, err := jc.service.ExportFile(GetOwnerID(c), c.Param("id"))
	if err != nil {
		jc.respondServiceError(c, err, "download export")
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// Events handles GET /api/jobs/:id/events
func (jc *JobsController) Events(c *gin.Context) {
	if jc.events == nil {
		respondNotFound(c, "audit log")
		return
	}
	job, err := jc.service.GetJob(GetOwnerID(c), c.Param("id"))
	if err != nil {
		jc.respondServiceError(c, err, "get job")
		return
	}

	events, err := jc.events.GetEventsForJob(job.ID)
	if err != nil {
		respondInternalError(c, jc.logger, err, "list job events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (jc *JobsController) respondServiceError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, services.ErrJobNotFound):
		respondNotFound(c, "job")
	case errors.Is(err, services.ErrInvalidSource):
		respondError(c, http.StatusBadRequest, "invalid_source", err.Error())
	case errors.Is(err, services.ErrInvalidScope):
		respondError(c, http.StatusBadRequest, "invalid_scope", err.Error())
	case errors.Is(err, services.ErrNotDownloadable):
		respondError(c, http.StatusConflict, "not_downloadable", err.Error())
	case errors.Is(err, services.ErrJobNotCancelable):
		respondError(c, http.StatusConflict, "not_cancelable", err.Error())
	default:
		respondInternalError(c, jc.logger, err, context)
	}
}
