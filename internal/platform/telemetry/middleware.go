package telemetry

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/authorclock/internal/platform/logging"
)

const instrumentationName = "github.com/jsamuelsen/authorclock/telemetry"

// HeaderTraceID carries the trace ID of a sampled request back to the caller.
const HeaderTraceID = "X-Trace-ID"

type httpMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	active   metric.Int64UpDownCounter
}

func newHTTPMetrics() (*httpMetrics, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	total, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	// Open event streams count here for as long as they stay connected.
	active, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{duration: duration, total: total, active: active}, nil
}

// Middleware returns the otelgin tracing handler followed by the request
// metrics handler. Paths starting with one of untraced get metrics but no
// span; probes and the long-lived event stream use this.
func Middleware(serviceName string, untraced ...string) []gin.HandlerFunc {
	metrics, err := newHTTPMetrics()
	if err != nil {
		otel.Handle(err)
	}

	tracing := otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		for _, prefix := range untraced {
			if strings.HasPrefix(r.URL.Path, prefix) {
				return false
			}
		}

		return true
	}))

	return []gin.HandlerFunc{tracing, requestMetrics(metrics)}
}

func requestMetrics(m *httpMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			id := sc.TraceID().String()
			c.Header(HeaderTraceID, id)

			ctx = logging.WithTraceID(ctx, id)
			c.Request = c.Request.WithContext(ctx)
		}

		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		base := metric.WithAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", routeOf(c)),
		)

		m.active.Add(ctx, 1, base)
		defer m.active.Add(ctx, -1, base)

		c.Next()

		status := metric.WithAttributes(attribute.Int("http.response.status_code", c.Writer.Status()))
		m.duration.Record(ctx, time.Since(start).Seconds(), base, status)
		m.total.Add(ctx, 1, base, status)
	}
}

// routeOf returns the matched route template. Unmatched paths share one label.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}

	return "unmatched"
}
