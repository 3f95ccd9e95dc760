package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HeaderOwnerID carries the owner a request acts for.
const HeaderOwnerID = "X-Owner-ID"

const contextKeyOwnerID = "owner_id"

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Owner Resolution ---

// OwnerMiddleware resolves the acting owner from the X-Owner-ID header or the
// owner_id query parameter, falling back to defaultOwner.
func OwnerMiddleware(defaultOwner uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderOwnerID)
		if raw == "" {
			raw = c.Query("owner_id")
		}
		ownerID := defaultOwner
		if raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || id == 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid owner id", Code: "invalid_owner"})
				return
			}
			ownerID = uint(id)
		}
		c.Set(contextKeyOwnerID, ownerID)
		c.Next()
	}
}

// GetOwnerID returns the owner resolved by OwnerMiddleware.
func GetOwnerID(c *gin.Context) uint {
	if v, ok := c.Get(contextKeyOwnerID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, logger *zap.Logger, err error, context string) {
	logger.Error("internal error", zap.String("context", context), zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseLimit reads an optional positive limit query parameter.
func parseLimit(c *gin.Context, fallback, max int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		respondBadRequest(c, "invalid limit")
		return 0, false
	}
	if limit > max {
		limit = max
	}
	return limit, true
}
