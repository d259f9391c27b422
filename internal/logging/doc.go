// Package logging provides structured logging with OpenTelemetry integration.
//
// It wraps Zap with:
//   - A custom Trace level (-2, below Debug) for per-draw detail
//   - Console output on stderr and an optional OpenTelemetry bridge
//   - Context field injection (trace_id, run.id, task.id, step.index)
//   - Redaction of sensitive keys and value patterns
//   - Per-level sampling (errors never sampled)
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
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithStepIndex(ctx, 3)
//	logger.Info(ctx, "step decided", zap.Int("k", 4))
//
// Packages that log on hot paths take the *zap.Logger from Underlying and
// call ContextFields themselves.
package logging
