package middleware

import (
	"time"

	"accounthub/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
