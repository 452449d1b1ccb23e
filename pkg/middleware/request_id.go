package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const HeaderRequestID = "X-Request-ID"

// RequestID propagates or assigns X-Request-ID and logs each request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestId", id)
		c.Header(HeaderRequestID, id)

		start := time.Now()
		c.Next()

		logrus.WithFields(logrus.Fields{
			"requestId": id,
			"method":    c.Request.Method,
			"path":      c.FullPath(),
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
			"user":      GetCurrentUser(c),
		}).Debug("request served")
	}
}
