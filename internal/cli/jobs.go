package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	auditrepo "github.com/mrlokans/journalport/internal/database/audit"
	"github.com/mrlokans/journalport/internal/database/users"
	"github.com/mrlokans/journalport/internal/entrypoint"
)

func newJobsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect import and export jobs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the owner's most recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(app *entrypoint.App) error {
				jobs, err := app.Transfer.ListJobs(e.ownerID(), limit)
				if err != nil {
					return err
				}

				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"ID", "Kind", "Status", "Progress", "Items", "Created"})
				for _, job := range jobs {
					t.AppendRow(table.Row{
						job.ID,
						job.Kind,
						job.Status,
						strconv.Itoa(job.Progress) + "%",
						fmt.Sprintf("%d/%d", job.ProcessedItems, job.TotalItems),
						job.CreatedAt.Format("2006-01-02 15:04:05"),
					})
				}
				t.Render()
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of jobs to show")

	show := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(app *entrypoint.App) error {
				job, err := app.Transfer.GetJob(e.ownerID(), args[0])
				if err != nil {
					return err
				}
				return printJob(cmd.OutOrStdout(), job)
			})
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a pending job or ask a running one to stop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(app *entrypoint.App) error {
				job, err := app.Transfer.CancelJob(e.ownerID(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "job %s: %s\n", job.ID, job.Status)
				return nil
			})
		},
	}

	var since time.Duration
	history := &cobra.Command{
		Use:   "history",
		Short: "Show the audit trail of finished jobs and cleanups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(app *entrypoint.App) error {
				filter := auditrepo.EventFilter{OwnerID: e.ownerID(), Limit: limit}
				if since > 0 {
					filter.Since = time.Now().Add(-since)
				}
				events, total, err := app.Audit.ListEvents(filter)
				if err != nil {
					return err
				}

				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"When", "Action", "Status", "Job", "Description"})
				for _, ev := range events {
					job := ""
					if ev.JobID != nil {
						job = *ev.JobID
					}
					t.AppendRow(table.Row{
						ev.CreatedAt.Format("2006-01-02 15:04:05"),
						ev.Action,
						ev.Status,
						job,
						text.Trim(ev.Description, 60),
					})
				}
				t.AppendFooter(table.Row{"", "", "", "total", total})
				t.Render()
				return nil
			})
		},
	}
	history.Flags().IntVar(&limit, "limit", 20, "maximum number of events to show")
	history.Flags().DurationVar(&since, "since", 0, "only events newer than this, e.g. 72h")

	cmd.AddCommand(list, show, cancel, history)
	return cmd
}

func newOwnersCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owners",
		Short: "Manage the accounts data is imported into",
	}

	var name, timeZone string
	create := &cobra.Command{
		Use:   "create <email>",
		Short: "Create an owner account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(app *entrypoint.App) error {
				user, err := users.NewRepository(app.DB.DB).CreateUser(args[0], name, timeZone)
				if err != nil {
					return fmt.Errorf("create owner: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created owner %d (%s)\n", user.ID, user.Email)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&timeZone, "timezone", "UTC", "IANA time zone")

	list := &cobra.Command{
		Use:   "list",
		Short: "List owner accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(app *entrypoint.App) error {
				owners, err := users.NewRepository(app.DB.DB).ListUsers()
				if err != nil {
					return err
				}

				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"ID", "Email", "Name", "Time Zone"})
				for _, u := range owners {
					t.AppendRow(table.Row{u.ID, u.Email, u.Name, u.TimeZone})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
