package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/attnd/internal/folder"
)

const instrumentationName = "github.com/fyrsmithlabs/attnd/internal/mcp"

// Metrics counts tool calls, their latency and their failures by reason.
type Metrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	failures metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// NewMetrics registers the tool instruments on mp, or on the global
// provider when mp is nil.
func NewMetrics(mp metric.MeterProvider, logger *zap.Logger) *Metrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := mp.Meter(instrumentationName)
	warn := func(name string, err error) {
		if err != nil {
			logger.Warn("mcp instrument unavailable", zap.String("instrument", name), zap.Error(err))
		}
	}

	m := &Metrics{}
	var err error

	m.calls, err = meter.Int64Counter("attnd.mcp.tool.invocations_total",
		metric.WithDescription("Folder tool calls by tool name."),
		metric.WithUnit("{invocation}"))
	warn("invocations_total", err)

	m.duration, err = meter.Float64Histogram("attnd.mcp.tool.duration_seconds",
		metric.WithDescription("Folder tool call latency by tool name."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10))
	warn("duration_seconds", err)

	m.failures, err = meter.Int64Counter("attnd.mcp.tool.errors_total",
		metric.WithDescription("Failed folder tool calls by tool name and reason."),
		metric.WithUnit("{error}"))
	warn("errors_total", err)

	m.inFlight, err = meter.Int64UpDownCounter("attnd.mcp.tool.active_requests",
		metric.WithDescription("Folder tool calls currently running."),
		metric.WithUnit("{request}"))
	warn("active_requests", err)

	return m
}

// track marks a tool call as started. The returned func ends it and
// records the outcome.
func (m *Metrics) track(ctx context.Context, tool string) func(error) {
	start := time.Now()
	toolAttr := attribute.String("tool", tool)
	if m.inFlight != nil {
		m.inFlight.Add(ctx, 1, metric.WithAttributes(toolAttr))
	}

	return func(err error) {
		if m.inFlight != nil {
			m.inFlight.Add(ctx, -1, metric.WithAttributes(toolAttr))
		}
		if m.calls != nil {
			m.calls.Add(ctx, 1, metric.WithAttributes(toolAttr))
		}
		if m.duration != nil {
			m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(toolAttr))
		}
		if err != nil && m.failures != nil {
			m.failures.Add(ctx, 1, metric.WithAttributes(toolAttr, attribute.String("reason", categorizeError(err))))
		}
	}
}

// categorizeError reduces an error to a low-cardinality reason label.
func categorizeError(err error) string {
	switch folder.Kind(err) {
	case nil:
	case folder.ErrInvalidInput:
		return "validation_error"
	case folder.ErrNotFound:
		return "not_found"
	case folder.ErrAccessDenied:
		return "access_denied"
	case folder.ErrTooLarge:
		return "too_large"
	case folder.ErrMalformedData:
		return "malformed_data"
	case folder.ErrUpstream:
		return "upstream_error"
	default:
		return "io_error"
	}

	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal_error"
	}
}
