package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GinMiddleware logs every HTTP request handled by gin
func GinMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      path,
			"status":    status,
			"latency":   time.Since(start),
			"client_ip": c.ClientIP(),
		})
		if query := c.Request.URL.RawQuery; query != "" {
			entry = entry.WithField("query", query)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.Errors())
		}

		switch {
		case status >= 500:
			entry.Error("HTTP request")
		case status >= 400:
			entry.Warn("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	}
}
