package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const uploadsDir = "uploads"

// StageUpload copies an incoming archive into the import temp directory
// and returns its path. The staged file is removed when its job finishes.
func (s *TransferService) StageUpload(r io.Reader) (string, error) {
	dir := filepath.Join(s.cfg.ImportTempDir, uploadsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+".zip")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return path, nil
}

// CleanupResult counts what one maintenance run removed.
type CleanupResult struct {
	ExportsRemoved  int
	TempDirsRemoved int
	StaleJobsFailed int64
}

// Cleanup removes export archives older than retention, leftover
// extraction directories and uploads older than retention, and fails
// running jobs that have not reported progress for staleAfter.
func (s *TransferService) Cleanup(ctx context.Context, retention, staleAfter time.Duration) (*CleanupResult, error) {
	res := &CleanupResult{}
	now := time.Now()

	if staleAfter > 0 {
		n, err := s.jobs.FailStale(now.Add(-staleAfter))
		if err != nil {
			return res, fmt.Errorf("failed to fail stale jobs: %w", err)
		}
		res.StaleJobsFailed = n
	}

	expired, err := s.jobs.ListExpiredExports(now.Add(-retention))
	if err != nil {
		return res, fmt.Errorf("failed to list expired exports: %w", err)
	}
	for _, job := range expired {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove export archive", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		if err := s.jobs.ClearFile(job.ID); err != nil {
			return res, err
		}
		res.ExportsRemoved++
	}

	res.TempDirsRemoved = s.removeStale(filepath.Join(s.cfg.ImportTempDir, uploadsDir), now.Add(-retention))
	res.TempDirsRemoved += s.removeStale(s.cfg.ImportTempDir, now.Add(-retention))

	if s.metrics != nil {
		s.metrics.ExportsCleaned.Add(float64(res.ExportsRemoved))
	}
	if s.audit != nil {
		s.audit.LogCleanup("exports_cleanup",
			fmt.Sprintf("Removed %d export archives and %d temp entries, failed %d stale jobs",
				res.ExportsRemoved, res.TempDirsRemoved, res.StaleJobsFailed),
			int64(res.ExportsRemoved), nil)
	}
	s.logger.Info("cleanup finished",
		zap.Int("exports_removed", res.ExportsRemoved),
		zap.Int("temp_removed", res.TempDirsRemoved),
		zap.Int64("stale_jobs_failed", res.StaleJobsFailed),
	)
	return res, nil
}

// removeStale deletes entries of dir last modified before cutoff. The
// uploads directory itself is kept.
func (s *TransferService) removeStale(dir string, cutoff time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.Name() == uploadsDir {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			s.logger.Warn("failed to remove temp entry", zap.String("path", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed
}
