package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/observability"
)

// longLivedRoutes stay open far past a normal request: the event stream until
// the run ends, the approval until the course is generated.
var longLivedRoutes = map[string]bool{
	"/api/course-runs/:id/events":   true,
	"/api/course-runs/:id/approval": true,
}

// Metrics counts every request by route. Long-lived routes get their own
// latency histogram and in-flight gauge.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		start := time.Now()

		if longLivedRoutes[route] {
			m.LongInflightInc(route)
			defer m.LongInflightDec(route)
			c.Next()
			m.ObserveLongRequest(method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
			return
		}

		m.ApiInflightInc()
		defer m.ApiInflightDec()
		c.Next()
		m.ObserveAPI(method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
