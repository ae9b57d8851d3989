package middleware

import (
	"time"

	"lanchat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger writes one record per request. Long-poll traffic is frequent,
// so successful reads go to trace and everything else to debug or warn.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"client", c.ClientIP(),
			"latency", time.Since(start).String(),
		}

		switch {
		case status >= 500:
			log.Warn("Request failed", args...)
		case c.Request.Method == "GET" && status < 400:
			log.Trace("Request served", args...)
		default:
			log.Debug("Request served", args...)
		}
	}
}
