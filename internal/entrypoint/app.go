package entrypoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/audit"
	"github.com/mrlokans/journalport/internal/config"
	"github.com/mrlokans/journalport/internal/database"
	auditrepo "github.com/mrlokans/journalport/internal/database/audit"
	"github.com/mrlokans/journalport/internal/mediastore"
	"github.com/mrlokans/journalport/internal/metrics"
	"github.com/mrlokans/journalport/internal/services"
)

// App holds the components shared by the server and the CLI commands.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *database.Database
	Blobs    mediastore.Blobs
	Transfer *services.TransferService
	Audit    *audit.Service
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

// NewApp opens the database and the media store and wires the transfer
// service. Close releases them.
func NewApp(ctx context.Context, cfg *config.Config, version string, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewDatabase(cfg.Database.Path, logger.Named("database"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	blobs, err := mediastore.NewBlobs(ctx, mediastore.BlobConfig{
		Backend:           cfg.Storage.Backend,
		LocalRoot:         cfg.Storage.MediaRoot,
		S3Bucket:          cfg.Storage.S3Bucket,
		S3Region:          cfg.Storage.S3Region,
		S3Endpoint:        cfg.Storage.S3Endpoint,
		S3Prefix:          cfg.Storage.S3Prefix,
		S3AccessKeyID:     cfg.Storage.S3AccessKeyID,
		S3SecretAccessKey: cfg.Storage.S3SecretAccessKey,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize media storage: %w", err)
	}

	appVersion := cfg.Transfer.AppVersion
	if version != "" && version != "dev" {
		appVersion = version
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	auditService := audit.NewService(auditrepo.NewRepository(db.DB), logger.Named("audit"))

	transfer := services.NewTransferService(db.DB, blobs, services.Config{
		ExportDir:         cfg.Transfer.ExportDir,
		ImportTempDir:     cfg.Transfer.ImportTempDir,
		MaxExtractBytes:   cfg.Transfer.MaxExtractBytes(),
		StreamThreshold:   cfg.Transfer.StreamThreshold(),
		ChecksumCacheSize: cfg.Transfer.ChecksumCacheSize,
		AppVersion:        appVersion,
	}, logger.Named("transfer"))
	transfer.SetAudit(auditService)
	transfer.SetMetrics(m)

	logger.Info("application initialized",
		zap.String("database", cfg.Database.Path),
		zap.String("storage", blobs.Type()),
		zap.String("export_dir", cfg.Transfer.ExportDir),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Blobs:    blobs,
		Transfer: transfer,
		Audit:    auditService,
		Registry: reg,
		Metrics:  m,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// Cleanup runs one maintenance pass in-process.
func (a *App) Cleanup(ctx context.Context) error {
	retention := time.Duration(a.Config.Transfer.ExportRetentionDays) * 24 * time.Hour
	if _, err := a.Transfer.Cleanup(ctx, retention, a.Config.Cleanup.StaleJobAfter); err != nil {
		return err
	}
	_, err := a.Audit.DeleteOldEvents(time.Duration(a.Config.Audit.RetentionDays) * 24 * time.Hour)
	return err
}

// inlineRunner runs jobs on goroutines when the task queue is disabled.
type inlineRunner struct {
	ctx      context.Context
	transfer *services.TransferService
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func (r *inlineRunner) EnqueueImport(jobID string) error {
	r.spawn(jobID, r.transfer.RunImport)
	return nil
}

func (r *inlineRunner) EnqueueExport(jobID string) error {
	r.spawn(jobID, r.transfer.RunExport)
	return nil
}

func (r *inlineRunner) spawn(jobID string, run func(context.Context, string) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx := r.ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		if err := run(ctx, jobID); err != nil {
			r.logger.Error("job failed to run", zap.String("job_id", jobID), zap.Error(err))
		}
	}()
}

// Wait blocks until running jobs return or ctx is done.
func (r *inlineRunner) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
