package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/journalport/internal/database"
	"github.com/mrlokans/journalport/internal/mediastore"
)

const healthCheckTimeout = 3 * time.Second

// healthCheckKey is looked up, never written. A miss still proves the
// backend answers.
const healthCheckKey = ".health/check"

type HealthCheck struct {
	Status    string `json:"status"` // "ok", "error" or "not configured"
	Backend   string `json:"backend,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type HealthResponse struct {
	Status  string                 `json:"status"`
	Time    string                 `json:"time"`
	Version string                 `json:"version,omitempty"`
	Checks  map[string]HealthCheck `json:"checks"`
}

type HealthController struct {
	db      *database.Database
	blobs   mediastore.Blobs
	version string
}

func NewHealthController(db *database.Database, blobs mediastore.Blobs, version string) *HealthController {
	return &HealthController{db: db, blobs: blobs, version: version}
}

func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]HealthCheck{
		"database": h.checkDatabase(ctx),
		"storage":  h.checkStorage(ctx),
	}

	status := "healthy"
	for _, check := range checks {
		if check.Status == "error" {
			status = "unhealthy"
		}
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.IndentedJSON(statusCode, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	})
}

func (h *HealthController) checkDatabase(ctx context.Context) HealthCheck {
	if h.db == nil {
		return HealthCheck{Status: "not configured"}
	}
	return timed("sqlite", func() error {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}

func (h *HealthController) checkStorage(ctx context.Context) HealthCheck {
	if h.blobs == nil {
		return HealthCheck{Status: "not configured"}
	}
	return timed(h.blobs.Type(), func() error {
		_, err := h.blobs.Exists(ctx, healthCheckKey)
		return err
	})
}

func timed(backend string, ping func() error) HealthCheck {
	start := time.Now()
	err := ping()
	check := HealthCheck{Status: "ok", Backend: backend, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}
