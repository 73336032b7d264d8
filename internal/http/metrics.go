package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/attnd/internal/http"

// routeOperations names the folder operation behind each API route. The
// name is the metric label, so unknown routes collapse into "other".
var routeOperations = map[string]string{
	"POST /api/v1/analyze":     "analyze",
	"GET /api/v1/tree":         "tree",
	"GET /api/v1/file":         "file.read",
	"PUT /api/v1/file":         "file.write",
	"GET /api/v1/metadata":     "metadata.get",
	"PUT /api/v1/metadata":     "metadata.set",
	"GET /api/v1/metadata/all": "metadata.dump",
	"PUT /api/v1/metadata/all": "metadata.replace",
	"GET /health":              "health",
	"GET /metrics":             "metrics",
}

// operationFor maps a method and matched route to its operation label.
func operationFor(method, route string) string {
	if op, ok := routeOperations[method+" "+route]; ok {
		return op
	}
	return "other"
}

// HTTPMetrics records request counts, latency and body sizes per folder
// operation.
type HTTPMetrics struct {
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
	responseSize metric.Int64Histogram
	inFlight     metric.Int64UpDownCounter
}

// NewHTTPMetrics creates the instruments on mp, or on the global provider
// when mp is nil. Instruments that fail to register are skipped.
func NewHTTPMetrics(mp metric.MeterProvider, logger *zap.Logger) *HTTPMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := mp.Meter(httpInstrumentationName)
	warn := func(name string, err error) {
		if err != nil {
			logger.Warn("http instrument unavailable", zap.String("instrument", name), zap.Error(err))
		}
	}

	m := &HTTPMetrics{}
	var err error

	m.requests, err = meter.Int64Counter("attnd.http.requests_total",
		metric.WithDescription("API requests by folder operation and status."),
		metric.WithUnit("{request}"))
	warn("requests_total", err)

	m.duration, err = meter.Float64Histogram("attnd.http.request_duration_seconds",
		metric.WithDescription("API request latency by folder operation and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10))
	warn("request_duration_seconds", err)

	// Tree and file bodies dominate the upper buckets.
	m.responseSize, err = meter.Int64Histogram("attnd.http.response_size_bytes",
		metric.WithDescription("API response body size by folder operation."),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(100, 1000, 10000, 100000, 1000000, 8000000))
	warn("response_size_bytes", err)

	m.inFlight, err = meter.Int64UpDownCounter("attnd.http.active_requests",
		metric.WithDescription("API requests currently being served."),
		metric.WithUnit("{request}"))
	warn("active_requests", err)

	return m
}

// MetricsMiddleware records one observation per request. Handler errors
// are rendered here so the recorded status is the one the client sees.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			start := time.Now()
			if m.inFlight != nil {
				m.inFlight.Add(ctx, 1)
				defer m.inFlight.Add(ctx, -1)
			}

			if err := next(c); err != nil {
				c.Error(err)
			}

			m.observe(c, time.Since(start))
			return nil
		}
	}
}

func (m *HTTPMetrics) observe(c echo.Context, elapsed time.Duration) {
	ctx := c.Request().Context()
	attrs := metric.WithAttributes(
		attribute.String("operation", operationFor(c.Request().Method, c.Path())),
		attribute.Int("status", c.Response().Status),
	)
	if m.requests != nil {
		m.requests.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
	if m.responseSize != nil {
		m.responseSize.Record(ctx, c.Response().Size, attrs)
	}
}
