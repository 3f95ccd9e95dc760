package tasks

import (
	"time"

	"github.com/mrlokans/journalport/internal/config"
)

// transferQueueTimeout is the hard backlite bound for import and export
// tasks. JobTimeout is clamped below it so the processor's own deadline
// always fires first and the job row is marked failed.
const transferQueueTimeout = 12 * time.Hour

// releaseMargin keeps ReleaseAfter clear of the longest job run. A task
// released while its import is still running would be claimed twice.
const releaseMargin = 15 * time.Minute

// Config controls the task queue workers.
type Config struct {
	Workers         int
	JobTimeout      time.Duration
	ReleaseAfter    time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig matches the application defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         2,
		JobTimeout:      2 * time.Hour,
		ReleaseAfter:    2*time.Hour + releaseMargin,
		CleanupInterval: time.Hour,
	}
}

// NewConfig builds a queue configuration from application settings,
// filling zero values from DefaultConfig.
func NewConfig(c config.Tasks) Config {
	return Config{
		Workers:         c.Workers,
		JobTimeout:      c.TaskTimeout,
		ReleaseAfter:    c.ReleaseAfter,
		CleanupInterval: c.CleanupInterval,
	}.normalize()
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = def.JobTimeout
	}
	if c.JobTimeout > transferQueueTimeout-releaseMargin {
		c.JobTimeout = transferQueueTimeout - releaseMargin
	}
	if c.ReleaseAfter < c.JobTimeout+releaseMargin {
		c.ReleaseAfter = c.JobTimeout + releaseMargin
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	return c
}
