// Package telemetry sets up OpenTelemetry tracing and metrics for maker.
//
// Traces and metrics are exported over OTLP (grpc or http/protobuf) to a
// collector. Telemetry is off by default.
//
//	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	metrics, err := executor.NewMetrics(tel.Meter(executor.InstrumentationName))
//
// Provider failures do not fail the run. The instance is marked degraded
// and the global providers are used instead; Health reports why.
//
// Tests use NewTestTelemetry, which records spans in memory and reads
// metrics through a ManualReader.
package telemetry
