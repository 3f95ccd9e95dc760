package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Storage
		Transfer
		Cleanup
		Audit
		Tasks
		Log
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		DefaultOwnerID           uint // Owner used when a request carries none
	}
	Database struct {
		Path string
	}
	Storage struct {
		MediaRoot         string
		Backend           string // "local" or "s3"
		S3Bucket          string
		S3Region          string
		S3Endpoint        string
		S3Prefix          string
		S3AccessKeyID     string
		S3SecretAccessKey string
	}
	Transfer struct {
		ExportDir           string
		ImportTempDir       string
		ImportMaxSizeMB     int // Bound on uncompressed archive size
		StreamThresholdMB   int // data.json above this size is stream-parsed
		ChecksumCacheSize   int
		ExportRetentionDays int
		AppVersion          string
	}
	Cleanup struct {
		Enabled       bool
		Schedule      string        // Cron format: "0 3 * * *" = daily at 03:00
		StaleJobAfter time.Duration // Running jobs silent for this long are failed
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		TaskTimeout     time.Duration // Upper bound on one import or export run
		ReleaseAfter    time.Duration // Claimed tasks are handed out again after this
		CleanupInterval time.Duration
	}
	Log struct {
		Level       string
		Development bool
	}
)

// LoadEnvFiles loads ENV_FILE when set, otherwise .env from the working
// directory. Missing files are ignored.
func LoadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 10)
	v.SetDefault("default_owner_id", 1)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Storage defaults
	v.SetDefault("media_root", DefaultMediaRoot)
	v.SetDefault("storage_backend", "local")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_prefix", "")

	// Transfer defaults
	v.SetDefault("export_dir", DefaultExportDir)
	v.SetDefault("import_temp_dir", DefaultImportTempDir)
	v.SetDefault("import_max_size_mb", 2048)
	v.SetDefault("stream_threshold_mb", 64)
	v.SetDefault("checksum_cache_size", 4096)
	v.SetDefault("export_retention_days", 7)
	v.SetDefault("app_version", "dev")

	// Cleanup defaults
	v.SetDefault("cleanup_enabled", true)
	v.SetDefault("cleanup_schedule", "0 3 * * *") // Daily at 03:00
	v.SetDefault("stale_job_after", "6h")
	v.SetDefault("audit_retention_days", 30)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_timeout", "2h")
	v.SetDefault("task_release_after", "3h")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			DefaultOwnerID:           v.GetUint("DEFAULT_OWNER_ID"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Storage: Storage{
			MediaRoot:         v.GetString("MEDIA_ROOT"),
			Backend:           v.GetString("STORAGE_BACKEND"),
			S3Bucket:          v.GetString("S3_BUCKET"),
			S3Region:          v.GetString("S3_REGION"),
			S3Endpoint:        v.GetString("S3_ENDPOINT"),
			S3Prefix:          v.GetString("S3_PREFIX"),
			S3AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			S3SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
		},
		Transfer: Transfer{
			ExportDir:           v.GetString("EXPORT_DIR"),
			ImportTempDir:       v.GetString("IMPORT_TEMP_DIR"),
			ImportMaxSizeMB:     v.GetInt("IMPORT_MAX_SIZE_MB"),
			StreamThresholdMB:   v.GetInt("STREAM_THRESHOLD_MB"),
			ChecksumCacheSize:   v.GetInt("CHECKSUM_CACHE_SIZE"),
			ExportRetentionDays: v.GetInt("EXPORT_RETENTION_DAYS"),
			AppVersion:          v.GetString("APP_VERSION"),
		},
		Cleanup: Cleanup{
			Enabled:       v.GetBool("CLEANUP_ENABLED"),
			Schedule:      v.GetString("CLEANUP_SCHEDULE"),
			StaleJobAfter: v.GetDuration("STALE_JOB_AFTER"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			TaskTimeout:     v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Log: Log{
			Level:       v.GetString("LOG_LEVEL"),
			Development: v.GetBool("LOG_DEVELOPMENT"),
		},
	}
}

// MB is one mebibyte.
const MB = 1 << 20

// MaxExtractBytes is the import size bound in bytes.
func (t Transfer) MaxExtractBytes() int64 {
	return int64(t.ImportMaxSizeMB) * MB
}

// StreamThreshold is the streaming threshold in bytes.
func (t Transfer) StreamThreshold() int64 {
	return int64(t.StreamThresholdMB) * MB
}
