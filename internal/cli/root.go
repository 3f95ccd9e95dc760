// Package cli implements the journalport command line: the server and
// one-shot import, export and maintenance commands that run jobs in-process.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/config"
	"github.com/mrlokans/journalport/internal/entrypoint"
	"github.com/mrlokans/journalport/internal/logging"
)

// env is the state shared by subcommands after the root pre-run.
type env struct {
	version  string
	cfg      *config.Config
	logger   *zap.Logger
	dbPath   string
	logLevel string
	owner    uint
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	e := &env{version: version}

	root := &cobra.Command{
		Use:           "journalport",
		Short:         "Import and export journal archives",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&e.dbPath, "db", "", "database path (overrides DATABASE_PATH)")
	flags.StringVar(&e.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flags.UintVar(&e.owner, "owner", 0, "owner id (defaults to DEFAULT_OWNER_ID)")

	root.AddCommand(
		newServeCommand(e),
		newImportCommand(e),
		newExportCommand(e),
		newJobsCommand(e),
		newOwnersCommand(e),
		newCleanupCommand(e),
		newUpgradeCommand(e),
	)
	return root
}

func (e *env) load() error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	e.cfg = config.NewConfig()
	if e.dbPath != "" {
		e.cfg.Database.Path = e.dbPath
	}
	if e.logLevel != "" {
		e.cfg.Log.Level = e.logLevel
	}

	logger, err := logging.New(logging.Config{Level: e.cfg.Log.Level, Development: e.cfg.Log.Development})
	if err != nil {
		return err
	}
	e.logger = logger
	return nil
}

// ownerID returns the --owner flag or the configured default owner.
func (e *env) ownerID() uint {
	if e.owner != 0 {
		return e.owner
	}
	return e.cfg.Global.DefaultOwnerID
}

// withApp opens the application for the duration of fn.
func (e *env) withApp(ctx context.Context, fn func(app *entrypoint.App) error) error {
	app, err := entrypoint.NewApp(ctx, e.cfg, e.version, e.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			e.logger.Warn("error closing database", zap.Error(err))
		}
	}()
	return fn(app)
}

func newServeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server with the task workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(e.cfg, e.version, e.logger)
		},
	}
}

func newCleanupCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired exports, stale temp files and old audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd.Context(), func(app *entrypoint.App) error {
				if err := app.Cleanup(cmd.Context()); err != nil {
					return fmt.Errorf("cleanup: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cleanup completed")
				return nil
			})
		},
	}
}
