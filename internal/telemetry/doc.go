// Package telemetry provides OpenTelemetry instrumentation for locus.
//
// # Overview
//
// Telemetry owns the SDK tracer and meter providers and exports through
// OTLP over gRPC (default) or HTTP/protobuf. Registry bootstraps are traced
// as "registry.Bootstrap" with one "registry.Provide" child per
// declaration; HTTP requests are measured by the introspection server.
//
// # Usage
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version),
//	    telemetry.WithLogger(logger.Underlying()))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	reg := registry.New(registry.WithTracer(tel.Tracer("locus.registry")))
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: "grpc"        # or "http/protobuf"
//	  insecure: true
//	  headers:
//	    authorization: "Bearer ..."
//
// # Error Handling
//
// Exporter failures never fail startup. The instance is marked degraded,
// the cause is logged, and the global providers are used instead.
//
// # Testing
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry
