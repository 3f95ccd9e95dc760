package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/database"
	"github.com/mrlokans/journalport/internal/mediastore"
	"github.com/mrlokans/journalport/internal/tasks"
)

// RouterConfig carries the dependencies of NewRouter.
type RouterConfig struct {
	Database       *database.Database
	Blobs          mediastore.Blobs
	Jobs           JobService
	JobEvents      JobEventLister
	TaskClient     *tasks.Client
	Gatherer       prometheus.Gatherer
	DefaultOwnerID uint
	MaxUploadBytes int64
	Version        string
	Logger         *zap.Logger
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(RequestLogger(logger.Named("http")))
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Blobs, cfg.Version)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api", OwnerMiddleware(cfg.DefaultOwnerID))

	// Import and export jobs
	if cfg.Jobs != nil {
		jobs := NewJobsController(cfg.Jobs, cfg.JobEvents, cfg.MaxUploadBytes, logger.Named("jobs"))
		api.POST("/imports", jobs.CreateImport)
		api.POST("/exports", jobs.CreateExport)
		api.GET("/jobs", jobs.ListJobs)
		api.GET("/jobs/:id", jobs.GetJob)
		api.POST("/jobs/:id/cancel", jobs.CancelJob)
		api.GET("/jobs/:id/download", jobs.Download)
		api.GET("/jobs/:id/events", jobs.Events)
	}

	// Task management endpoints
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		api.GET("/tasks/types", tasksController.ListTaskTypes)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
		api.POST("/tasks/:type/run", tasksController.RunTask)
	}

	return router
}
