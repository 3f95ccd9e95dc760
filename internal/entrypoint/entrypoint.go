package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/config"
	http_controllers "github.com/mrlokans/journalport/internal/http"
	"github.com/mrlokans/journalport/internal/scheduler"
	"github.com/mrlokans/journalport/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, logger *zap.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("shutting down server", zap.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Stop background work after the server stops accepting new jobs.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	logger.Info("server exiting")
	return nil
}

// Run starts the HTTP server with the task queue and the cleanup scheduler
// and blocks until shutdown.
func Run(cfg *config.Config, version string, logger *zap.Logger) error {
	logger.Info("starting journalport", zap.String("version", version))
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := NewApp(context.Background(), cfg, version, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("error closing database", zap.Error(err))
		}
	}()

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Import and export jobs run on the task queue when it is enabled and
	// on goroutines otherwise.
	var taskClient *tasks.Client
	var inline *inlineRunner
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.NewConfig(cfg.Tasks), logger.Named("tasks"))
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Warn("error closing task client", zap.Error(err))
			}
		}()

		taskClient.RegisterTransfer(app.Transfer)
		taskClient.Register(
			tasks.NewCleanupExportsQueue(app.Transfer, logger.Named("tasks")),
			tasks.NewCleanupAuditEventsQueue(app.Audit, logger.Named("tasks")),
		)
		app.Transfer.SetEnqueuer(taskClient)
		go taskClient.Start(bgCtx)
	} else {
		logger.Warn("task queue disabled, jobs run in-process")
		inline = &inlineRunner{ctx: bgCtx, transfer: app.Transfer, logger: logger, timeout: tasks.NewConfig(cfg.Tasks).JobTimeout}
		app.Transfer.SetEnqueuer(inline)
	}

	var cleanup *scheduler.CleanupScheduler
	if cfg.Cleanup.Enabled {
		trigger := app.Cleanup
		if taskClient != nil {
			trigger = func(ctx context.Context) error {
				_, err := taskClient.Add(
					tasks.CleanupExportsTask{
						RetentionDays:     cfg.Transfer.ExportRetentionDays,
						StaleAfterMinutes: int(cfg.Cleanup.StaleJobAfter / time.Minute),
					},
					tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays},
				).Save()
				return err
			}
		}
		cleanup = scheduler.NewCleanupScheduler(cfg.Cleanup.Schedule, trigger, logger)
		if err := cleanup.Start(bgCtx); err != nil {
			return err
		}
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       app.DB,
		Blobs:          app.Blobs,
		Jobs:           app.Transfer,
		JobEvents:      app.Audit,
		TaskClient:     taskClient,
		Gatherer:       app.Registry,
		DefaultOwnerID: cfg.Global.DefaultOwnerID,
		MaxUploadBytes: cfg.Transfer.MaxExtractBytes(),
		Version:        version,
		Logger:         logger,
	})

	onShutdown := func(ctx context.Context) {
		if cleanup != nil {
			cleanup.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		if inline != nil {
			inline.Wait(ctx)
		}
		bgCancel()
	}

	return Serve(router, cfg, logger, onShutdown)
}
