package cli

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mrlokans/journalport/internal/entrypoint"
	"github.com/mrlokans/journalport/internal/services"
)

func newUpgradeCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Rewrite stored data written by older versions",
	}

	var (
		dryRun    bool
		batchSize int
	)
	inline := &cobra.Command{
		Use:   "dayone-inline-media",
		Short: "Turn leftover DAYONE_* placeholders into media embeds",
		Long: `Entries imported from DayOne may still carry DAYONE_PHOTO, DAYONE_VIDEO or
DAYONE_AUDIO placeholders as text. This step matches them against the
entry's media and its import metadata and replaces the matches with embeds.

Every owner is upgraded unless --owner is given.

Example:
  journalport upgrade dayone-inline-media --dry-run
  journalport upgrade dayone-inline-media --owner 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchSize <= 0 {
				return fmt.Errorf("--batch-size must be positive")
			}
			return e.withApp(cmd.Context(), func(app *entrypoint.App) error {
				res, err := app.Transfer.UpgradeInlineMedia(cmd.Context(), services.InlineMediaOptions{
					OwnerID:   e.owner,
					BatchSize: batchSize,
					DryRun:    dryRun,
				})
				if err != nil {
					return fmt.Errorf("upgrade %s: %w", services.StepDayOneInlineMedia, err)
				}

				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.SetTitle(services.StepDayOneInlineMedia)
				t.AppendHeader(table.Row{"Metric", "Value"})
				t.AppendRows([]table.Row{
					{"Entries scanned", strconv.Itoa(res.Scanned)},
					{"Entries updated", strconv.Itoa(res.Updated)},
					{"Placeholders resolved", strconv.Itoa(res.Resolved)},
					{"Placeholders left", strconv.Itoa(res.Unresolved)},
				})
				t.Render()
				if dryRun {
					fmt.Fprintln(cmd.OutOrStdout(), "dry run: no entries were changed")
				}
				return nil
			})
		},
	}
	inline.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	inline.Flags().IntVar(&batchSize, "batch-size", 200, "entries read per batch")

	cmd.AddCommand(inline)
	return cmd
}
