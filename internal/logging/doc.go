// Package logging provides structured logging for vibeguard on top of zap.
//
// # Overview
//
// The Logger type adds:
//   - a Trace level (-2, below Debug)
//   - stdout and OpenTelemetry sinks (via the otelzap bridge)
//   - correlation fields taken from the context: trace_id, span_id,
//     request_id, scan_id, repo
//   - redaction by field name and by value pattern, including GitHub tokens
//   - per-level sampling; Error and above are never sampled
//
// # Usage
//
//	cfg, err := logging.FromSettings(appCfg.Logging)
//	if err != nil {
//	    return err
//	}
//	logger, err := logging.NewLogger(cfg, otelLoggerProvider)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithScanID(ctx, scanID)
//	ctx = logging.WithRepo(ctx, "octo/widgets@main")
//	logger.Info(ctx, "scan complete", zap.Int("findings", n))
//
// produces
//
//	{"level":"info","ts":"2026-03-02T10:15:30.000Z","msg":"scan complete",
//	 "service":"vibeguard","scan_id":"5f0c...","repo":"octo/widgets@main","findings":3}
//
// Packages that accept a *zap.Logger get Underlying().
//
// # Sampling
//
// Defaults per one-second tick and message:
//   - Trace: first 1, drop rest
//   - Debug: first 10, drop rest
//   - Info: first 100, then 1 every 10
//   - Warn: first 100, then 1 every 100
//   - Error+: never sampled
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	svc := pipeline.New(..., tl.Logger)
//	tl.AssertLogged(t, zapcore.InfoLevel, "scan complete")
//	tl.AssertNoSecrets(t)
package logging
