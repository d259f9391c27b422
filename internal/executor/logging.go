package executor

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/maker/internal/logging"
	"github.com/fyrsmithlabs/maker/internal/redflag"
	"github.com/fyrsmithlabs/maker/internal/voting"
	"go.uber.org/zap"
)

// Logger wraps zap.Logger with step-specific structured logging.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("executor")}
}

// StepStarted logs the caps a step runs under.
func (l *Logger) StepStarted(ctx context.Context, cfg StepConfig) {
	if l == nil || l.logger == nil {
		return
	}
	fields := append(logging.ContextFields(ctx),
		zap.Int("k", cfg.K),
		zap.Int("sample_cap", cfg.SampleCap),
		zap.Int("resample_cap", cfg.ResampleCap),
	)
	l.logger.Debug("step started", fields...)
}

// CandidateRejected logs a red-flagged draw.
func (l *Logger) CandidateRejected(ctx context.Context, v redflag.Verdict, draw, resampleUsed int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := append(logging.ContextFields(ctx),
		zap.String("reason", string(v.Reason)),
		zap.String("rule", v.Rule),
		zap.String("detail", v.Detail),
		zap.Int("draw", draw),
		zap.Int("resample_used", resampleUsed),
	)
	l.logger.Debug("candidate rejected", fields...)
}

// OracleFailed logs one failed draw.
func (l *Logger) OracleFailed(ctx context.Context, err error, draw, resampleUsed int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := append(logging.ContextFields(ctx),
		zap.Error(err),
		zap.Int("draw", draw),
		zap.Int("resample_used", resampleUsed),
	)
	l.logger.Warn("oracle sample failed", fields...)
}

// StepFinished logs a terminal outcome.
func (l *Logger) StepFinished(ctx context.Context, kind voting.OutcomeKind, samples, votes, lead, distinct, draws int, duration time.Duration) {
	if l == nil || l.logger == nil {
		return
	}
	fields := append(logging.ContextFields(ctx),
		zap.String("outcome", string(kind)),
		zap.Int("samples_used", samples),
		zap.Int("votes", votes),
		zap.Int("lead", lead),
		zap.Int("distinct", distinct),
		zap.Int("draws", draws),
		zap.Duration("duration", duration),
	)
	if kind == voting.OutcomeExhausted {
		l.logger.Warn("step exhausted", fields...)
		return
	}
	l.logger.Debug("step decided", fields...)
}

// OracleExhausted logs a step that never produced a vote.
func (l *Logger) OracleExhausted(ctx context.Context, err *ExhaustedError) {
	if l == nil || l.logger == nil {
		return
	}
	fields := append(logging.ContextFields(ctx),
		zap.Int("resample_cap", err.ResampleCap),
		zap.Int("rejections", err.Rejections),
		zap.Int("oracle_failures", err.OracleFailures),
	)
	if err.LastErr != nil {
		fields = append(fields, zap.NamedError("last_error", err.LastErr))
	}
	l.logger.Error("oracle exhausted", fields...)
}
