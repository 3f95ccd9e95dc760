package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/database"
	"github.com/mrlokans/journalport/internal/mediastore"
)

func setupHealthTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "health.db"), zap.NewNop())
	require.NoError(t, err)
	return db
}

func getHealth(t *testing.T, controller *HealthController) (int, HealthResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w.Code, response
}

type failingBlobs struct{ mediastore.Blobs }

func (failingBlobs) Type() string { return "s3" }

func (failingBlobs) Exists(context.Context, string) (bool, error) {
	return false, errors.New("bucket unreachable")
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database and storage answer", func(t *testing.T) {
		db := setupHealthTestDB(t)
		defer db.Close()
		blobs, err := mediastore.NewLocalBlobs(t.TempDir())
		require.NoError(t, err)

		code, response := getHealth(t, NewHealthController(db, blobs, "1.0.0"))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["database"].Status)
		assert.Equal(t, "sqlite", response.Checks["database"].Backend)
		assert.Equal(t, "ok", response.Checks["storage"].Status)
		assert.Equal(t, "local", response.Checks["storage"].Backend)
		assert.Contains(t, response.Time, "T")
	})

	t.Run("reports missing dependencies", func(t *testing.T) {
		code, response := getHealth(t, NewHealthController(nil, nil, ""))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "not configured", response.Checks["database"].Status)
		assert.Equal(t, "not configured", response.Checks["storage"].Status)
		assert.Empty(t, response.Version)
	})

	t.Run("returns unhealthy when database connection is closed", func(t *testing.T) {
		db := setupHealthTestDB(t)
		require.NoError(t, db.Close())

		code, response := getHealth(t, NewHealthController(db, nil, "1.0.0"))

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Equal(t, "error", response.Checks["database"].Status)
		assert.NotEmpty(t, response.Checks["database"].Error)
	})

	t.Run("returns unhealthy when storage does not answer", func(t *testing.T) {
		db := setupHealthTestDB(t)
		defer db.Close()

		code, response := getHealth(t, NewHealthController(db, failingBlobs{}, "1.0.0"))

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "ok", response.Checks["database"].Status)
		assert.Equal(t, "s3", response.Checks["storage"].Backend)
		assert.Equal(t, "bucket unreachable", response.Checks["storage"].Error)
	})
}
