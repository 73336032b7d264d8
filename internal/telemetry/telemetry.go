package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// exporter is the flush/stop surface shared by the SDK providers.
type exporter interface {
	ForceFlush(context.Context) error
	Shutdown(context.Context) error
}

// Telemetry owns the tracer, meter and logger providers of an attnd process. The
// folder service and the HTTP layer draw their tracers and meters from it.
type Telemetry struct {
	config *Config

	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	logProvider    *sdklog.LoggerProvider

	healthy  atomic.Bool
	degraded atomic.Bool

	mu       sync.Mutex
	failures []string
}

// New creates a Telemetry instance. A disabled config yields a no-op
// instance. Exporter setup failures mark the instance degraded; attnd keeps
// serving folders without them.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{config: cfg}
	t.healthy.Store(true)
	if !cfg.Enabled {
		return t, nil
	}

	res := newResource(cfg)

	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		t.recordFailure("traces", err)
	} else {
		t.tracerProvider = tp
		otel.SetTracerProvider(tp)
	}

	if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
		t.recordFailure("metrics", err)
	} else if mp != nil {
		t.meterProvider = mp
		otel.SetMeterProvider(mp)
	}

	if lp, err := newLoggerProvider(ctx, cfg, res); err != nil {
		t.recordFailure("logs", err)
	} else if lp != nil {
		t.logProvider = lp
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// Tracer returns a tracer for an instrumentation scope such as
// "attnd.folder". Without an own provider it falls back to the global one.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t == nil || t.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.tracerProvider.Tracer(name, opts...)
}

// Meter returns a meter for an instrumentation scope.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return t.MeterProvider().Meter(name, opts...)
}

// MeterProvider returns this instance's meter provider, or the global one.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	if t == nil || t.meterProvider == nil {
		return otel.GetMeterProvider()
	}
	return t.meterProvider
}

// LoggerProvider returns the provider for the zap OTEL bridge, or nil when
// log export is off.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil || t.logProvider == nil {
		return nil
	}
	return t.logProvider
}

// exporters lists the providers that buffer data.
func (t *Telemetry) exporters() map[string]exporter {
	out := make(map[string]exporter, 3)
	if t.tracerProvider != nil {
		out["traces"] = t.tracerProvider
	}
	if t.meterProvider != nil {
		out["metrics"] = t.meterProvider
	}
	if t.logProvider != nil {
		out["logs"] = t.logProvider
	}
	return out
}

// Shutdown flushes and stops every provider. Without a deadline on ctx the
// configured shutdown timeout applies.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.config != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ShutdownAfter.Duration())
		defer cancel()
	}

	var errs []error
	for name, e := range t.exporters() {
		if err := e.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s shutdown: %w", name, err))
		}
	}
	t.healthy.Store(false)
	return errors.Join(errs...)
}

// ForceFlush exports everything buffered so far.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	for name, e := range t.exporters() {
		if err := e.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s flush: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// HealthStatus summarizes exporter state.
type HealthStatus struct {
	Healthy  bool     `json:"healthy"`
	Degraded bool     `json:"degraded"`
	Failures []string `json:"failures,omitempty"`
}

// Health returns the current exporter state.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Degraded: true}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return HealthStatus{
		Healthy:  t.healthy.Load(),
		Degraded: t.degraded.Load(),
		Failures: append([]string(nil), t.failures...),
	}
}

// IsEnabled reports whether telemetry was requested and is still running.
func (t *Telemetry) IsEnabled() bool {
	if t == nil || t.config == nil {
		return false
	}
	return t.config.Enabled && t.healthy.Load()
}

func (t *Telemetry) recordFailure(signal string, err error) {
	t.degraded.Store(true)
	t.mu.Lock()
	t.failures = append(t.failures, fmt.Sprintf("%s: %v", signal, err))
	t.mu.Unlock()
}
