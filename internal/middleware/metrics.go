package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumnos-crm-api/internal/service"
)

// UnmatchedRoute labels requests that hit no registered route, so probing
// random URLs cannot grow the metric label set.
const UnmatchedRoute = "unmatched"

// Metrics observes every request under its route pattern, never the raw
// path, since ids and tokens would otherwise become labels.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = UnmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
