package monitoring

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), int64(c.Writer.Size()))
	}
}

// Timer measures one upstream call
type Timer struct {
	start    time.Time
	metrics  *Metrics
	upstream string
}

// NewTimer starts timing a call to upstream. A nil metrics makes Stop a no-op.
func NewTimer(metrics *Metrics, upstream string) *Timer {
	return &Timer{
		start:    time.Now(),
		metrics:  metrics,
		upstream: upstream,
	}
}

// Stop records the call with its outcome
func (t *Timer) Stop(outcome string) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordUpstream(t.upstream, outcome, time.Since(t.start))
}
