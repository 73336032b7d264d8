// Package telemetry provides OpenTelemetry instrumentation for attnd.
//
// # Usage
//
//	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
//	tracer := tel.Tracer("attnd.folder")
//	ctx, span := tracer.Start(ctx, "folder.Analyze")
//	defer span.End()
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc          # or http/protobuf
//	  service_name: "attnd"
//	  sampling_rate: 1.0
//	  export_logs: false      # ship zap entries over OTLP as well
//
// Telemetry failures do not crash the daemon. If an exporter cannot be
// created the instance is marked degraded and falls back to the global
// (no-op by default) providers.
//
// # Testing
//
//	tt := telemetry.NewTestTelemetry()
//	svc, _ := folder.NewService(cfg, folder.WithTelemetry(tt.Telemetry))
//	...
//	tt.AssertSpanExists(t, "folder.Analyze")
//	n, _ := tt.CounterFor(ctx, "folder.operations.total", attribute.String("result", "not found"))
package telemetry
