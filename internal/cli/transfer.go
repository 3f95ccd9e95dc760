package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/entrypoint"
	"github.com/mrlokans/journalport/internal/exporter"
	"github.com/mrlokans/journalport/internal/readers"
)

func newImportCommand(e *env) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "import <archive.zip>",
		Short: "Import a native or DayOne archive",
		Long: `Import reads a ZIP archive and loads its journals into the owner's account.

The source format is detected from the archive contents unless --source is
given. The archive file itself is left untouched.

Example:
  journalport import --owner 1 export.zip
  journalport import --source dayone "Journal.zip"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(app *entrypoint.App) error {
				job, err := runImport(cmd, app, e.ownerID(), source, args[0])
				if err != nil {
					return err
				}
				return printJob(cmd.OutOrStdout(), job)
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", readers.FormatAuto, "archive format: auto, native or dayone")
	return cmd
}

func runImport(cmd *cobra.Command, app *entrypoint.App, ownerID uint, source, path string) (*entities.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	// RunImport removes the file it imports, so work on a staged copy.
	staged, err := app.Transfer.StageUpload(f)
	if err != nil {
		return nil, err
	}

	job, err := app.Transfer.CreateImportJob(ownerID, source, staged)
	if err != nil {
		os.Remove(staged)
		return nil, err
	}
	if err := app.Transfer.RunImport(cmd.Context(), job.ID); err != nil {
		return nil, err
	}
	job, err = app.Transfer.GetJob(ownerID, job.ID)
	if err != nil {
		return nil, err
	}
	if job.Status == entities.JobStatusFailed {
		return job, fmt.Errorf("import failed: %v", job.Errors)
	}
	return job, nil
}

func newExportCommand(e *env) *cobra.Command {
	var (
		journalIDs []string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the owner's journals to a ZIP archive",
		Long: `Export writes the owner's data to a native archive in the export directory.

Without --journal the whole account is exported. With one or more --journal
flags only those journals are included.

Example:
  journalport export --owner 1 --out backup.zip
  journalport export --journal 7f3c... --journal 91ab...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := exporter.ScopeFull
			if len(journalIDs) > 0 {
				scope = exporter.ScopeJournal
			}

			return e.withApp(cmd.Context(), func(app *entrypoint.App) error {
				ownerID := e.ownerID()
				job, err := app.Transfer.CreateExportJob(ownerID, scope, journalIDs)
				if err != nil {
					return err
				}
				if err := app.Transfer.RunExport(cmd.Context(), job.ID); err != nil {
					return err
				}
				if job, err = app.Transfer.GetJob(ownerID, job.ID); err != nil {
					return err
				}
				if job.Status != entities.JobStatusCompleted {
					return fmt.Errorf("export %s: %v", job.Status, job.Errors)
				}

				if out != "" {
					if err := copyFile(job.FilePath, out); err != nil {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "archive copied to %s\n", out)
				}
				return printJob(cmd.OutOrStdout(), job)
			})
		},
	}

	cmd.Flags().StringSliceVar(&journalIDs, "journal", nil, "journal id to export (repeatable)")
	cmd.Flags().StringVar(&out, "out", "", "copy the finished archive to this path")
	return cmd
}

// jobView is the CLI rendering of a finished job.
type jobView struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	Status      string         `json:"status"`
	Summary     map[string]any `json:"result_summary,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
	Errors      []string       `json:"errors,omitempty"`
	File        string         `json:"file,omitempty"`
	FileSize    int64          `json:"file_size,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

func printJob(w io.Writer, job *entities.Job) error {
	summary := make(map[string]any, len(job.ResultSummary))
	for k, v := range job.ResultSummary {
		if k != "id_mappings" && k != "warnings" {
			summary[k] = v
		}
	}
	view := jobView{
		ID:          job.ID,
		Kind:        string(job.Kind),
		Status:      string(job.Status),
		Summary:     summary,
		Warnings:    job.Warnings,
		Errors:      job.Errors,
		File:        job.FilePath,
		FileSize:    job.FileSize,
		CompletedAt: job.CompletedAt,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy archive: %w", err)
	}
	return out.Close()
}
