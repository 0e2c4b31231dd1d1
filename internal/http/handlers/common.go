package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"trainbackend/internal/domain"
	"trainbackend/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// RespondError sends standard error payload with request_id included.
func RespondError(c *gin.Context, status int, message string, err error) {
	reqID := middleware.GetRequestID(c)
	payload := gin.H{
		"message":    message,
		"request_id": reqID,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	c.JSON(status, payload)
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil {
		RespondError(c, http.StatusBadRequest, "empty body", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid payload", err)
		return false
	}
	return true
}

// pathID parses the :id path segment as a positive int64.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid id", err)
		return 0, false
	}
	return id, true
}

// connectivityMode reads the caller-declared mode from the
// X-Connectivity-Mode header (or ?mode=). Anything other than "offline"
// means online.
func connectivityMode(c *gin.Context) domain.ConnectivityMode {
	mode := strings.ToLower(strings.TrimSpace(c.GetHeader("X-Connectivity-Mode")))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(c.Query("mode")))
	}
	if mode == string(domain.ModeOffline) {
		return domain.ModeOffline
	}
	return domain.ModeOnline
}
