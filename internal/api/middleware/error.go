package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vladvaleanu/automation-platform-sub000/pkg/errors"
)

// ErrorHandlingMiddleware recovers panics and turns them into structured
// 500 responses so one bad request never takes the service down.
func ErrorHandlingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"query":       c.Request.URL.RawQuery,
			"ip":          c.ClientIP(),
			"panic":       fmt.Sprintf("%v", recovered),
			"stack_trace": string(debug.Stack()),
		}).Error("Panic recovered in API middleware")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"error":     "Internal server error",
			"code":      http.StatusInternalServerError,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"path":      c.Request.URL.Path,
		})
	})
}

// ErrorResponseMiddleware converts errors attached to the context into
// standardized responses.
func ErrorResponseMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := errors.GetStatusCode(err)

		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
			"error":  err.Error(),
		}).Error("API request error")

		response := gin.H{
			"success":   false,
			"error":     err.Error(),
			"code":      status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"path":      c.Request.URL.Path,
		}
		if appErr, ok := err.(*errors.AppError); ok {
			response["error"] = appErr.Message
			if appErr.Details != "" && gin.Mode() == gin.DebugMode {
				response["details"] = appErr.Details
			}
		}

		c.JSON(status, response)
	}
}
