package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LDThien999/ptitclassroom-score-api/internal/repository"
	"github.com/LDThien999/ptitclassroom-score-api/internal/service"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/middleware/requestid"
)

// Metrics captures request duration and status per route template.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// ForwardRequestID copies the request id into the request context so that
// upstream calls carry it.
func ForwardRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := requestid.Value(c); id != "" {
			c.Request = c.Request.WithContext(repository.WithRequestID(c.Request.Context(), id))
		}
		c.Next()
	}
}
