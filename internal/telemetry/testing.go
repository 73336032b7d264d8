package telemetry

import (
	"context"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry records spans and metrics in memory so tests can inspect
// what a folder operation emitted.
type TestTelemetry struct {
	*Telemetry

	SpanRecorder *tracetest.SpanRecorder
	reader       *sdkmetric.ManualReader
}

// NewTestTelemetry returns an enabled instance wired to a span recorder and
// a manual metric reader. Nothing is exported.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	recorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	tel := &Telemetry{
		config:         cfg,
		tracerProvider: trace.NewTracerProvider(trace.WithSpanProcessor(recorder)),
		meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
	tel.healthy.Store(true)

	return &TestTelemetry{Telemetry: tel, SpanRecorder: recorder, reader: reader}
}

// Spans returns ended spans in end order.
func (t *TestTelemetry) Spans() []trace.ReadOnlySpan {
	return t.SpanRecorder.Ended()
}

// SpanByName returns the last ended span with the name, or nil.
func (t *TestTelemetry) SpanByName(name string) trace.ReadOnlySpan {
	spans := t.Spans()
	for i := len(spans) - 1; i >= 0; i-- {
		if spans[i].Name() == name {
			return spans[i]
		}
	}
	return nil
}

// AssertSpanExists fails tb unless a span with the name ended.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if t.SpanByName(name) != nil {
		return
	}
	var seen []string
	for _, s := range t.Spans() {
		seen = append(seen, s.Name())
	}
	tb.Errorf("span %q not recorded, have %v", name, seen)
}

// AssertSpanAttribute fails tb unless the named span carries key=want.
// Integer attributes compare as int64.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, spanName, key string, want interface{}) {
	tb.Helper()
	span := t.SpanByName(spanName)
	if span == nil {
		tb.Fatalf("span %q not recorded", spanName)
	}
	for _, kv := range span.Attributes() {
		if string(kv.Key) != key {
			continue
		}
		if got := kv.Value.AsInterface(); got != want {
			tb.Errorf("span %q: %s = %v (%T), want %v (%T)", spanName, key, got, got, want, want)
		}
		return
	}
	tb.Errorf("span %q has no attribute %q", spanName, key)
}

// CollectMetrics reads the current metric state.
func (t *TestTelemetry) CollectMetrics(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := t.reader.Collect(ctx, &rm)
	return rm, err
}

// MetricNames lists every metric recorded so far.
func (t *TestTelemetry) MetricNames(ctx context.Context) ([]string, error) {
	var names []string
	err := t.eachMetric(ctx, func(m metricdata.Metrics) {
		names = append(names, m.Name)
	})
	return names, err
}

// CounterTotal sums an int64 counter across all attribute sets.
func (t *TestTelemetry) CounterTotal(ctx context.Context, name string) (int64, error) {
	var (
		total int64
		found bool
	)
	err := t.eachMetric(ctx, func(m metricdata.Metrics) {
		if m.Name != name {
			return
		}
		if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
			found = true
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("counter %q not recorded", name)
	}
	return total, nil
}

// CounterFor returns the int64 counter value for the data point carrying
// attr, or zero.
func (t *TestTelemetry) CounterFor(ctx context.Context, name string, attr attribute.KeyValue) (int64, error) {
	var total int64
	err := t.eachMetric(ctx, func(m metricdata.Metrics) {
		sum, ok := m.Data.(metricdata.Sum[int64])
		if m.Name != name || !ok {
			return
		}
		for _, dp := range sum.DataPoints {
			if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
				total += dp.Value
			}
		}
	})
	return total, err
}

func (t *TestTelemetry) eachMetric(ctx context.Context, fn func(metricdata.Metrics)) error {
	rm, err := t.CollectMetrics(ctx)
	if err != nil {
		return err
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			fn(m)
		}
	}
	return nil
}
