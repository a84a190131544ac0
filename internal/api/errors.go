package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sensetrack/domain/core"
	"sensetrack/internal/errors"
)

// statusFor maps an error code to an HTTP status
func statusFor(code string) int {
	switch code {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeValidationError, errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeConflict:
		return http.StatusConflict
	case errors.CodeExternalService:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes {"error", "code"}; internal errors hide their message
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	_ = c.Error(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

// bindJSON decodes the request body or responds 400
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// pathID parses the :id path parameter or responds 400
func pathID(c *gin.Context) (core.ID, bool) {
	id, err := core.ParseID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput("invalid id"))
		return "", false
	}
	return id, true
}

// referenceTime reads ?now=RFC3339, defaulting to fallback
func referenceTime(c *gin.Context, fallback func() time.Time) (time.Time, bool) {
	raw := c.Query("now")
	if raw == "" {
		return fallback(), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondError(c, errors.InvalidInput("now must be an RFC3339 timestamp"))
		return time.Time{}, false
	}
	return t, true
}
