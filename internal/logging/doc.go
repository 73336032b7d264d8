// Package logging provides structured logging for attnd.
//
// # Overview
//
// The package wraps Zap with:
//   - A Trace level (-2, below Debug)
//   - Stdout or stderr output (JSON or console) and an optional OpenTelemetry output
//   - Context field injection (trace_id, span_id, request.id, folder.root)
//   - Level-aware sampling where errors are never sampled
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithFolderRoot(ctx, "/srv/app")
//	logger.Info(ctx, "tree built", zap.Int("nodes", n))
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	svc := tree.NewBuilder(tl.Logger, tree.Options{})
//	...
//	tl.AssertLogged(t, zapcore.WarnLevel, "directory skipped")
package logging
