// Package logging provides structured logging for locus.
//
// # Overview
//
// The package wraps Zap with:
//   - a Trace level (-2, below Debug)
//   - stdout output, optionally teed into OpenTelemetry logs
//   - correlation fields pulled from the context (trace, request,
//     capability, bootstrap run)
//   - redaction of sensitive field names and value patterns
//   - per-level sampling, with errors never sampled
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithCapability(ctx, "greeter")
//	logger.Info(ctx, "resolved", zap.String("type", "*services.English"))
//
// The registry itself takes a plain *zap.Logger; pass Underlying().
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "bootstrap complete")
//	tl.AssertLogged(t, zapcore.InfoLevel, "bootstrap complete")
package logging
