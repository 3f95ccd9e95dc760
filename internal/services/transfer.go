// Package services runs import and export jobs on top of the importer and
// exporter packages.
//
// A job is created by the HTTP API or the CLI, handed to an Enqueuer and
// later executed by RunImport or RunExport on a task worker. Only these two
// methods move a job out of running.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/archive"
	"github.com/mrlokans/journalport/internal/audit"
	"github.com/mrlokans/journalport/internal/database/checksums"
	"github.com/mrlokans/journalport/internal/database/jobs"
	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/exporter"
	"github.com/mrlokans/journalport/internal/importer"
	"github.com/mrlokans/journalport/internal/mediastore"
	"github.com/mrlokans/journalport/internal/metrics"
	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/readers/dayone"
	"github.com/mrlokans/journalport/internal/readers/native"
	"github.com/mrlokans/journalport/internal/transfer"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrInvalidSource    = errors.New("unsupported source type")
	ErrInvalidScope     = errors.New("unsupported export scope")
	ErrNotDownloadable  = errors.New("export is not available for download")
	ErrJobNotCancelable = errors.New("job is already finished")
)

// Config holds the transfer settings taken from the application config.
type Config struct {
	ExportDir         string
	ImportTempDir     string
	MaxExtractBytes   int64
	StreamThreshold   int64
	ChecksumCacheSize int
	AppVersion        string
}

type TransferService struct {
	db       *gorm.DB
	jobs     *jobs.Repository
	blobs    mediastore.Blobs
	cfg      Config
	enqueuer Enqueuer
	audit    *audit.Service
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewTransferService(db *gorm.DB, blobs mediastore.Blobs, cfg Config, logger *zap.Logger) *TransferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{
		db:     db,
		jobs:   jobs.NewRepository(db),
		blobs:  blobs,
		cfg:    cfg,
		logger: logger,
	}
}

// SetEnqueuer wires the task queue. Without one, created jobs stay pending
// until the caller runs them.
func (s *TransferService) SetEnqueuer(e Enqueuer) { s.enqueuer = e }

func (s *TransferService) SetAudit(a *audit.Service) { s.audit = a }

func (s *TransferService) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// CreateImportJob registers an uploaded archive for import.
func (s *TransferService) CreateImportJob(ownerID uint, sourceType, archivePath string) (*entities.Job, error) {
	switch sourceType {
	case "":
		sourceType = readers.FormatAuto
	case readers.FormatAuto, readers.FormatNative, readers.FormatDayOne:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, sourceType)
	}

	job, err := s.jobs.CreateJob(ownerID, entities.JobKindImport, entities.JobParams{
		SourceType: sourceType,
		FilePath:   archivePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueImport(job.ID); err != nil {
			_ = s.jobs.Fail(job.ID, "failed to enqueue job", nil)
			return nil, fmt.Errorf("failed to enqueue import job: %w", err)
		}
	}
	return job, nil
}

// CreateExportJob registers an export of the whole account or of the given
// journals.
func (s *TransferService) CreateExportJob(ownerID uint, scope string, journalIDs []string) (*entities.Job, error) {
	switch scope {
	case "":
		scope = exporter.ScopeFull
	case exporter.ScopeFull:
	case exporter.ScopeJournal:
		if len(journalIDs) == 0 {
			return nil, fmt.Errorf("%w: journal scope needs journal ids", ErrInvalidScope)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}

	job, err := s.jobs.CreateJob(ownerID, entities.JobKindExport, entities.JobParams{
		Scope:      scope,
		JournalIDs: journalIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create export job: %w", err)
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueExport(job.ID); err != nil {
			_ = s.jobs.Fail(job.ID, "failed to enqueue job", nil)
			return nil, fmt.Errorf("failed to enqueue export job: %w", err)
		}
	}
	return job, nil
}

// GetJob returns a job of ownerID.
func (s *TransferService) GetJob(ownerID uint, jobID string) (*entities.Job, error) {
	job, err := s.jobs.GetJobForOwner(jobID, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	return job, err
}

func (s *TransferService) ListJobs(ownerID uint, limit int) ([]entities.Job, error) {
	return s.jobs.ListJobs(ownerID, limit)
}

// CancelJob cancels a pending job or asks a running one to stop between
// units.
func (s *TransferService) CancelJob(ownerID uint, jobID string) (*entities.Job, error) {
	job, err := s.GetJob(ownerID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, ErrJobNotCancelable
	}
	job, err = s.jobs.RequestCancel(jobID)
	if errors.Is(err, jobs.ErrInvalidTransition) {
		return nil, ErrJobNotCancelable
	}
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.LogCancel(job)
	}
	return job, nil
}

// ExportFile returns the archive path of a completed export.
func (s *TransferService) ExportFile(ownerID uint, jobID string) (string, error) {
	job, err := s.GetJob(ownerID, jobID)
	if err != nil {
		return "", err
	}
	if job.Kind != entities.JobKindExport || job.Status != entities.JobStatusCompleted || job.FilePath == "" {
		return "", ErrNotDownloadable
	}
	if _, err := os.Stat(job.FilePath); err != nil {
		return "", ErrNotDownloadable
	}
	return job.FilePath, nil
}

// RunImport executes an import job. Unit failures end up in the job
// summary; only fatal errors fail the job.
func (s *TransferService) RunImport(ctx context.Context, jobID string) error {
	job, log, ok, err := s.begin(jobID)
	if err != nil || !ok {
		return err
	}
	done := s.metrics.JobStarted(string(entities.JobKindImport))
	startedAt := time.Now()

	workDir := filepath.Join(s.cfg.ImportTempDir, job.ID)
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn("failed to remove extraction dir", zap.Error(err))
		}
		if job.Params.FilePath != "" {
			if err := os.Remove(job.Params.FilePath); err != nil && !os.IsNotExist(err) {
				log.Warn("failed to remove uploaded archive", zap.Error(err))
			}
		}
	}()

	src, format, err := s.read(ctx, job, workDir, log)
	if err != nil {
		s.fail(job, format+"_import", err, nil, log)
		done(string(entities.JobStatusFailed), time.Since(startedAt).Seconds())
		return nil
	}
	if err := s.jobs.SetTotal(job.ID, src.EntryCount+src.MomentCount); err != nil {
		log.Warn("failed to record job total", zap.Error(err))
	}

	storer, err := mediastore.NewStorer(s.blobs, checksums.NewRepository(s.db), s.cfg.ChecksumCacheSize, log)
	if err != nil {
		s.fail(job, format+"_import", err, nil, log)
		done(string(entities.JobStatusFailed), time.Since(startedAt).Seconds())
		return nil
	}

	tracker := newJobTracker(s.jobs, job.ID, log)
	summary, err := importer.New(s.db, storer, log).Import(ctx, job.OwnerID, src, tracker)
	s.metrics.ObserveImport(summary)
	counters := toMap(summary, log)

	switch {
	case errors.Is(err, importer.ErrCancelled):
		if err := s.jobs.FinishCancelled(job.ID, counters, summary.Warnings); err != nil {
			log.Error("failed to finish cancelled job", zap.Error(err))
		}
		job.Status = entities.JobStatusCancelled
		s.logAudit(job, format+"_import", counters, nil)
		log.Info("import cancelled")
	case err != nil:
		s.fail(job, format+"_import", err, summary.Warnings, log)
	default:
		if err := s.jobs.Complete(job.ID, counters, summary.Warnings, "", 0); err != nil {
			log.Error("failed to complete job", zap.Error(err))
			return err
		}
		job.Status = entities.JobStatusCompleted
		s.logAudit(job, format+"_import", counters, nil)
		log.Info("import completed", zap.Int("warnings", len(summary.Warnings)))
	}

	done(string(job.Status), time.Since(startedAt).Seconds())
	return nil
}

// read extracts the uploaded archive and opens it with the reader of its
// format.
func (s *TransferService) read(ctx context.Context, job *entities.Job, workDir string, log *zap.Logger) (*readers.Archive, string, error) {
	extracted, err := archive.Extract(ctx, job.Params.FilePath, workDir, s.cfg.MaxExtractBytes)
	if err != nil {
		return nil, job.Params.SourceType, err
	}
	for _, w := range extracted.Warnings {
		log.Warn("archive entry skipped", zap.String("entry", w.Path), zap.String("reason", w.Reason))
	}

	format := job.Params.SourceType
	if format == "" || format == readers.FormatAuto {
		if format, err = readers.Detect(extracted.Root); err != nil {
			return nil, readers.FormatAuto, err
		}
	}
	log.Info("archive extracted", zap.String("format", format), zap.Int("files", extracted.Files), zap.Int64("bytes", extracted.Bytes))

	var src *readers.Archive
	switch format {
	case readers.FormatNative:
		if extracted.ManifestPath == "" {
			return nil, format, fmt.Errorf("%w: archive has no %s", ErrInvalidSource, archive.ManifestName)
		}
		src, err = native.NewReader(s.cfg.StreamThreshold, log).Read(ctx, extracted.ManifestPath, extracted.MediaDir)
	case readers.FormatDayOne:
		src, err = dayone.NewReader(log).Read(ctx, extracted.Root)
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidSource, format)
	}
	if err != nil {
		return nil, format, err
	}
	for _, w := range extracted.Warnings {
		src.AddWarning(w.Error(), transfer.CategorySecurity)
	}
	return src, format, nil
}

// RunExport executes an export job and leaves the archive in the export
// directory.
func (s *TransferService) RunExport(ctx context.Context, jobID string) error {
	job, log, ok, err := s.begin(jobID)
	if err != nil || !ok {
		return err
	}
	done := s.metrics.JobStarted(string(entities.JobKindExport))
	startedAt := time.Now()
	action := job.Params.Scope + "_export"

	builder := exporter.NewBuilder(s.db, s.blobs, s.cfg.AppVersion, log)
	scope := exporter.Scope{Kind: job.Params.Scope, JournalIDs: job.Params.JournalIDs}

	result, err := builder.Build(ctx, job.OwnerID, scope, newJobTracker(s.jobs, job.ID, log))
	if errors.Is(err, exporter.ErrCancelled) {
		if err := s.jobs.FinishCancelled(job.ID, nil, nil); err != nil {
			log.Error("failed to finish cancelled job", zap.Error(err))
		}
		job.Status = entities.JobStatusCancelled
		s.logAudit(job, action, nil, nil)
		done(string(job.Status), time.Since(startedAt).Seconds())
		return nil
	}
	if err != nil {
		s.fail(job, action, err, nil, log)
		done(string(entities.JobStatusFailed), time.Since(startedAt).Seconds())
		return nil
	}

	path, size, err := builder.Write(ctx, result, s.cfg.ExportDir, job.OwnerID)
	if err != nil {
		s.fail(job, action, err, result.Warnings, log)
		done(string(entities.JobStatusFailed), time.Since(startedAt).Seconds())
		return nil
	}

	if err := s.jobs.Complete(job.ID, result.Manifest.Stats, result.Warnings, path, size); err != nil {
		log.Error("failed to complete job", zap.Error(err))
		_ = os.Remove(path)
		return err
	}
	if s.metrics != nil {
		s.metrics.ExportBytes.Add(float64(size))
	}
	job.Status = entities.JobStatusCompleted
	s.logAudit(job, action, result.Manifest.Stats, nil)
	log.Info("export completed", zap.String("path", path), zap.Int64("size", size))
	done(string(job.Status), time.Since(startedAt).Seconds())
	return nil
}

// begin loads a job and moves it to running. ok is false when the job was
// cancelled or finished before a worker picked it up.
func (s *TransferService) begin(jobID string) (*entities.Job, *zap.Logger, bool, error) {
	job, err := s.jobs.GetJob(jobID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, false, ErrJobNotFound
	}
	if err != nil {
		return nil, nil, false, err
	}

	log := s.logger.With(zap.String("job_id", job.ID), zap.String("kind", string(job.Kind)), zap.Uint("owner_id", job.OwnerID))
	if err := s.jobs.Start(job.ID); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			log.Info("job no longer pending, skipping", zap.String("status", string(job.Status)))
			return job, log, false, nil
		}
		return nil, nil, false, err
	}
	job.Status = entities.JobStatusRunning
	log.Info("job started")
	return job, log, true, nil
}

func (s *TransferService) fail(job *entities.Job, action string, cause error, warnings []string, log *zap.Logger) {
	log.Error("job failed", zap.Error(cause))
	if err := s.jobs.Fail(job.ID, cause.Error(), warnings); err != nil {
		log.Error("failed to mark job failed", zap.Error(err))
	}
	job.Status = entities.JobStatusFailed
	s.logAudit(job, action, nil, cause)
}

func (s *TransferService) logAudit(job *entities.Job, action string, counters map[string]any, err error) {
	if s.audit == nil {
		return
	}
	// id mappings are kept on the job only.
	slim := make(map[string]any, len(counters))
	for k, v := range counters {
		if k != "id_mappings" && k != "warnings" {
			slim[k] = v
		}
	}
	s.audit.LogJob(job, action, slim, err)
}

// toMap turns a summary struct into the JSON object stored on the job.
func toMap(v any, log *zap.Logger) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn("failed to encode job summary", zap.Error(err))
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Warn("failed to encode job summary", zap.Error(err))
		return nil
	}
	return out
}
