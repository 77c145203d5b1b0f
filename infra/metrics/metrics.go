package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/giovaniif/stock-records/protocols"
)

// unmatchedRoute labels requests that hit no registered route, so requests to
// arbitrary URLs cannot grow the label set.
const unmatchedRoute = "unmatched"

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_http_requests_total",
			Help: "HTTP requests served, by route template and status",
		},
		[]string{"method", "route", "status"},
	)
	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stock_http_request_duration_seconds",
			Help:    "Time spent serving an HTTP request, by route template",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	OperationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_operations_total",
			Help: "Stock record operations by outcome",
		},
		[]string{"operation", "result"},
	)
	ReorderNeeded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stock_reorder_needed",
			Help: "Stock records at or below their reorder threshold at the last scan",
		},
	)
)

// ObserveOperation counts one operation under a coarse result label.
func ObserveOperation(operation string, err error) {
	OperationTotal.WithLabelValues(operation, Result(err)).Inc()
}

// Result is "ok" for nil and the API error code otherwise.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return protocols.ErrorCode(err)
}

// Route is the gin route template that matched, e.g.
// "/records/:productId/:location/reserve". Record ids never reach a label.
func Route(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

func Middleware(c *gin.Context) {
	if c.Request.URL.Path == "/metrics" {
		c.Next()
		return
	}
	start := time.Now()
	c.Next()
	route := Route(c)
	HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	HTTPLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
}
