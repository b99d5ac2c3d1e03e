// Package middleware holds application middleware tied to internal
// services.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campussched/campussched-api/internal/service"
)

// Metrics returns middleware that records request metrics on the provided
// metrics service.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), duration)
	}
}
