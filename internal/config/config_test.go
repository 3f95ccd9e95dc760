package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8190), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, DefaultMediaRoot, cfg.Storage.MediaRoot)
	assert.Equal(t, 64, cfg.Transfer.StreamThresholdMB)
	assert.Equal(t, int64(64<<20), cfg.Transfer.StreamThreshold())
	assert.Equal(t, int64(2048)<<20, cfg.Transfer.MaxExtractBytes())
	assert.Equal(t, 7, cfg.Transfer.ExportRetentionDays)
	assert.Equal(t, "0 3 * * *", cfg.Cleanup.Schedule)
	assert.Equal(t, 6*time.Hour, cfg.Cleanup.StaleJobAfter)
	assert.Equal(t, uint(1), cfg.Global.DefaultOwnerID)
	assert.True(t, cfg.Tasks.Enabled)
	assert.Equal(t, 2, cfg.Tasks.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewConfig_Environment(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "journals")
	t.Setenv("STREAM_THRESHOLD_MB", "8")
	t.Setenv("TASK_TIMEOUT", "30m")
	t.Setenv("CLEANUP_ENABLED", "false")

	cfg := NewConfig()

	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "journals", cfg.Storage.S3Bucket)
	assert.Equal(t, int64(8<<20), cfg.Transfer.StreamThreshold())
	assert.Equal(t, 30*time.Minute, cfg.Tasks.TaskTimeout)
	assert.False(t, cfg.Cleanup.Enabled)
}

func TestLoadEnvFiles(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("JOURNALPORT_TEST_VALUE=from-file\n"), 0o644))
	t.Setenv("ENV_FILE", envFile)
	t.Cleanup(func() { os.Unsetenv("JOURNALPORT_TEST_VALUE") })

	require.NoError(t, LoadEnvFiles())
	assert.Equal(t, "from-file", os.Getenv("JOURNALPORT_TEST_VALUE"))
}

func TestLoadEnvFiles_MissingFileIgnored(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, LoadEnvFiles())
}
