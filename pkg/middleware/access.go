package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"triage/internal/logger"
	"triage/pkg/metrics"
)

// AccessLog logs and measures every request once it has been served.
// Server errors log at error level.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), status, elapsed)

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", elapsed,
			"client_ip", c.ClientIP(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, "error", errs)
		}

		ctx := c.Request.Context()
		if status >= http.StatusInternalServerError {
			log.ErrorwCtx(ctx, "HTTP request", fields...)
			return
		}
		log.InfowCtx(ctx, "HTTP request", fields...)
	}
}

// Recovery answers 500 in the API's error shape when a handler panics.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.ErrorwCtx(c.Request.Context(), "Panic in HTTP handler",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      "internal server error",
			"error_code": "INTERNAL_ERROR",
		})
	})
}
