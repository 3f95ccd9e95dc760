package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
)

// ImportRunner executes a stored import job.
type ImportRunner interface {
	RunImport(ctx context.Context, jobID string) error
}

// ExportRunner executes a stored export job.
type ExportRunner interface {
	RunExport(ctx context.Context, jobID string) error
}

// TransferRunner executes both job kinds.
type TransferRunner interface {
	ImportRunner
	ExportRunner
}

// transferRetention keeps finished transfer tasks for a day and their
// payload only on failure.
var transferRetention = &backlite.Retention{
	Duration: 24 * time.Hour,
	Data:     &backlite.RetainData{OnlyFailed: true},
}

// ImportTask runs one import job. Job state lives in the jobs table, so the
// task is never retried: a second attempt would find the job running.
type ImportTask struct {
	JobID string `json:"job_id"`
}

// Config returns the queue configuration for import tasks.
func (t ImportTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_job",
		MaxAttempts: 1,
		Timeout:     transferQueueTimeout,
		Retention:   transferRetention,
	}
}

// ExportTask runs one export job.
type ExportTask struct {
	JobID string `json:"job_id"`
}

// Config returns the queue configuration for export tasks.
func (t ExportTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "export_job",
		MaxAttempts: 1,
		Timeout:     transferQueueTimeout,
		Retention:   transferRetention,
	}
}

// runBounded runs one job under timeout. A zero timeout leaves ctx as is.
func runBounded(ctx context.Context, timeout time.Duration, kind, jobID string, run func(context.Context, string) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := run(ctx, jobID); err != nil {
		return fmt.Errorf("%s job %s: %w", kind, jobID, err)
	}
	return nil
}

// ImportProcessor creates a processor function for ImportTask.
func ImportProcessor(runner ImportRunner, timeout time.Duration) backlite.QueueProcessor[ImportTask] {
	return func(ctx context.Context, task ImportTask) error {
		if runner == nil {
			return fmt.Errorf("import runner not configured")
		}
		return runBounded(ctx, timeout, "import", task.JobID, runner.RunImport)
	}
}

// ExportProcessor creates a processor function for ExportTask.
func ExportProcessor(runner ExportRunner, timeout time.Duration) backlite.QueueProcessor[ExportTask] {
	return func(ctx context.Context, task ExportTask) error {
		if runner == nil {
			return fmt.Errorf("export runner not configured")
		}
		return runBounded(ctx, timeout, "export", task.JobID, runner.RunExport)
	}
}

// NewImportQueue creates a backlite queue for import tasks.
func NewImportQueue(runner ImportRunner, timeout time.Duration) backlite.Queue {
	return backlite.NewQueue(ImportProcessor(runner, timeout))
}

// NewExportQueue creates a backlite queue for export tasks.
func NewExportQueue(runner ExportRunner, timeout time.Duration) backlite.Queue {
	return backlite.NewQueue(ExportProcessor(runner, timeout))
}
