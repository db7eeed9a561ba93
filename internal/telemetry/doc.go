// Package telemetry exports traces and metrics over OTLP.
//
// New builds an SDK tracer provider (and meter provider when metric export
// is on) that ships to an OTLP collector over gRPC or HTTP:
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx, span := tel.Tracer("vibeguard/pipeline").Start(ctx, "pipeline.scan")
//	defer span.End()
//
// Configuration (config file keys under telemetry):
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc          # or http/protobuf
//	  sampling_rate: 0.25
//	  metrics_enabled: true
//	  export_interval: 15s
//
// Insecure export is only accepted for loopback endpoints. Provider
// failures degrade the instance instead of failing startup; Health
// reports why.
//
// Tests use NewTestTelemetry, which records spans with a SpanRecorder and
// metrics with a ManualReader.
package telemetry
