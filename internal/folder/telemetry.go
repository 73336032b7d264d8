package folder

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/attnd/internal/profile"
	"github.com/fyrsmithlabs/attnd/pkg/git"
)

// InstrumentationName is the name used for OTEL instrumentation.
const InstrumentationName = "github.com/fyrsmithlabs/attnd/internal/folder"

// Metrics records per-operation counts and latency.
type Metrics struct {
	operationsTotal   metric.Int64Counter
	operationDuration metric.Float64Histogram

	initialized bool
}

// NewMetrics creates Metrics on meter. A nil meter uses the global provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.operationsTotal, err = meter.Int64Counter(
		"folder.operations.total",
		metric.WithDescription("Total number of folder operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	m.operationDuration, err = meter.Float64Histogram(
		"folder.operation.duration.seconds",
		metric.WithDescription("Duration of folder operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordOperation records one finished operation. result is "success" or
// the error kind.
func (m *Metrics) RecordOperation(ctx context.Context, op string, err error, duration time.Duration) {
	if m == nil || !m.initialized {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("result", resultLabel(err)),
	)
	m.operationsTotal.Add(ctx, 1, attrs)
	m.operationDuration.Record(ctx, duration.Seconds(), attrs)
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	if kind := Kind(err); kind != nil {
		return kind.Error()
	}
	return "error"
}

// operation brackets one Service call with a span and a metric.
type operation struct {
	name    string
	span    trace.Span
	started time.Time
	metrics *Metrics
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, *operation) {
	ctx, span := s.tracer.Start(ctx, "folder."+op, trace.WithAttributes(attrs...))
	return ctx, &operation{name: op, span: span, started: time.Now(), metrics: s.metrics}
}

// end finishes the span and returns err unchanged.
func (o *operation) end(ctx context.Context, err error) error {
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	} else {
		o.span.SetStatus(codes.Ok, "")
	}
	o.span.End()
	o.metrics.RecordOperation(ctx, o.name, err, time.Since(o.started))
	return err
}

// tracedVCS wraps a VCS provider with a span and tags its failures as
// upstream errors.
type tracedVCS struct {
	inner  profile.VCSProvider
	tracer trace.Tracer
}

func (v *tracedVCS) Facts(ctx context.Context, root string) (*git.Facts, error) {
	ctx, span := v.tracer.Start(ctx, "folder.vcs.Facts")
	defer span.End()

	facts, err := v.inner.Facts(ctx, root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("vcs facts: %w: %w", ErrUpstream, err)
	}
	span.SetAttributes(
		attribute.Int("vcs.commit_count", facts.CommitCount),
		attribute.Int("vcs.branch_count", len(facts.Branches)),
	)
	return facts, nil
}
