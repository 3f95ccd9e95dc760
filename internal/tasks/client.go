package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/logging"
)

// Client runs import, export and maintenance tasks on a backlite queue
// stored in its own SQLite file next to the application database.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	running bool
}

// TasksDBPath returns the queue database path for an application database,
// e.g. data/journalport.db -> data/journalport-tasks.db.
func TasksDBPath(mainDBPath string) string {
	ext := filepath.Ext(mainDBPath)
	return strings.TrimSuffix(mainDBPath, ext) + "-tasks" + ext
}

// NewClient opens the queue database and installs the backlite schema.
func NewClient(mainDBPath string, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.normalize()

	db, err := sql.Open("sqlite3", TasksDBPath(mainDBPath)+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open tasks database: %w", err)
	}
	// Every worker holds a connection while its job runs; dispatch and
	// cleanup need a few more.
	db.SetMaxOpenConns(cfg.Workers + 4)
	db.SetMaxIdleConns(cfg.Workers + 1)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          logging.NewBacklite(logger),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create task client: %w", err)
	}
	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("install task schema: %w", err)
	}

	return &Client{client: client, db: db, config: cfg, logger: logger}, nil
}

// Config returns the normalized queue configuration.
func (c *Client) Config() Config {
	return c.config
}

// Register adds queues. Call before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// RegisterTransfer adds the import and export queues, both bounded by the
// configured job timeout.
func (c *Client) RegisterTransfer(runner TransferRunner) {
	c.Register(
		NewImportQueue(runner, c.config.JobTimeout),
		NewExportQueue(runner, c.config.JobTimeout),
	)
}

// Start blocks while dispatching tasks until ctx is cancelled or Stop is
// called. Run it in a goroutine.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	c.logger.Info("task queue started",
		zap.Int("workers", c.config.Workers),
		zap.Duration("job_timeout", c.config.JobTimeout))
	c.client.Start(ctx)
}

// Stop waits for running tasks until ctx expires. It reports whether every
// worker finished in time.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.Lock()
	running := c.running
	c.running = false
	c.mu.Unlock()
	if !running {
		return true
	}

	if !c.client.Stop(ctx) {
		c.logger.Warn("task queue stop timed out, running jobs will be failed as stale")
		return false
	}
	c.logger.Info("task queue stopped")
	return true
}

// Close releases the queue database. Call after Stop.
func (c *Client) Close() error {
	return c.db.Close()
}

// Add starts an enqueue operation.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// EnqueueImport schedules an import job.
func (c *Client) EnqueueImport(jobID string) error {
	if _, err := c.client.Add(ImportTask{JobID: jobID}).Save(); err != nil {
		return fmt.Errorf("enqueue import %s: %w", jobID, err)
	}
	return nil
}

// EnqueueExport schedules an export job.
func (c *Client) EnqueueExport(jobID string) error {
	if _, err := c.client.Add(ExportTask{JobID: jobID}).Save(); err != nil {
		return fmt.Errorf("enqueue export %s: %w", jobID, err)
	}
	return nil
}
