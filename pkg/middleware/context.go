package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"triage/pkg/logging"
)

const (
	RequestIDHeader = "X-Request-ID"
	UserIDHeader    = "X-User-ID"
)

// RequestContext moves the request id and caller identity into the request
// context, where loggers and the audit log pick them up. A missing request id
// is generated and echoed back; a missing caller stays empty.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		ctx = logging.WithRequestID(ctx, id)

		if actor := strings.TrimSpace(c.GetHeader(UserIDHeader)); actor != "" {
			ctx = logging.WithActor(ctx, actor)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
