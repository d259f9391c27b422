package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/maker/internal/redflag"
	"github.com/fyrsmithlabs/maker/internal/voting"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// StepExecutor runs voting steps against an oracle. It is safe for
// concurrent use.
type StepExecutor struct {
	filter  *redflag.Filter
	logger  *Logger
	metrics *Metrics
	limiter *rate.Limiter
	backoff func() retry.Backoff
	tracer  trace.Tracer
}

// Option configures a StepExecutor.
type Option func(*StepExecutor)

// WithFilter replaces the default red-flag filter.
func WithFilter(f *redflag.Filter) Option {
	return func(e *StepExecutor) {
		if f != nil {
			e.filter = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *StepExecutor) {
		e.logger = NewLogger(l)
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(e *StepExecutor) {
		e.metrics = m
	}
}

// WithTracer sets the tracer for step spans. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *StepExecutor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithRateLimiter waits on l before every oracle draw.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(e *StepExecutor) {
		e.limiter = l
	}
}

// WithFailureBackoff waits between an oracle failure and the next draw.
// newBackoff is called once per step; a stopped backoff means no further wait.
func WithFailureBackoff(newBackoff func() retry.Backoff) Option {
	return func(e *StepExecutor) {
		e.backoff = newBackoff
	}
}

// ExponentialBackoff returns a backoff factory starting at base and capped at max.
func ExponentialBackoff(base, max time.Duration) func() retry.Backoff {
	return func() retry.Backoff {
		b := retry.NewExponential(base)
		if max > 0 {
			b = retry.WithCappedDuration(max, b)
		}
		return b
	}
}

// New creates a StepExecutor with the default red-flag filter.
func New(opts ...Option) *StepExecutor {
	e := &StepExecutor{
		filter: redflag.NewFilter(),
		logger: NewLogger(nil),
		tracer: Tracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StepResult is the outcome of a step plus how the draws were spent.
type StepResult[V comparable] struct {
	Outcome        voting.Outcome[V]      `json:"outcome"`
	Draws          int                    `json:"draws"`
	Rejections     map[redflag.Reason]int `json:"rejections,omitempty"`
	OracleFailures int                    `json:"oracle_failures"`
	Duration       time.Duration          `json:"duration"`
}

// Rejected returns the total number of red-flagged draws.
func (r StepResult[V]) Rejected() int {
	n := 0
	for _, c := range r.Rejections {
		n += c
	}
	return n
}

// RunStep draws candidates from o until a value wins or a cap is reached.
func RunStep[V comparable](ctx context.Context, e *StepExecutor, o Oracle[V], cfg StepConfig, opts ...voting.SessionOption[V]) (voting.Outcome[V], error) {
	res, err := RunStepDetailed(ctx, e, o, cfg, opts...)
	if err != nil {
		return voting.Outcome[V]{}, err
	}
	return res.Outcome, nil
}

// RunStepDetailed is RunStep with draw accounting.
//
// Rejected candidates and oracle failures share ResampleCap. Cancellation of
// ctx is returned as ctx.Err() and is never counted as an oracle failure.
func RunStepDetailed[V comparable](ctx context.Context, e *StepExecutor, o Oracle[V], cfg StepConfig, opts ...voting.SessionOption[V]) (StepResult[V], error) {
	res := StepResult[V]{Rejections: make(map[redflag.Reason]int)}
	if e == nil {
		e = New()
	}
	if o == nil {
		return res, fmt.Errorf("%w: oracle is nil", ErrInvalidStepConfig)
	}
	if err := cfg.Validate(); err != nil {
		return res, err
	}
	session, err := voting.NewSession[V](cfg.K, cfg.SampleCap, opts...)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalidStepConfig, err)
	}

	start := time.Now()
	ctx, span := startStepSpan(ctx, e.tracer, cfg)
	e.logger.StepStarted(ctx, cfg)

	var backoff retry.Backoff
	if e.backoff != nil {
		backoff = e.backoff()
	}

	finish := func(label string, err error) (StepResult[V], error) {
		res.Duration = time.Since(start)
		e.metrics.RecordOutcome(ctx, label, session.Total(), res.Duration)
		endStepSpan(span, label, res.Draws, session.Total(), err)
		return res, err
	}

	decided := func() (StepResult[V], error) {
		out, err := session.Result()
		if err != nil {
			return finish(outcomeLabelMisuse, err)
		}
		res.Outcome = out
		res.Duration = time.Since(start)
		e.logger.StepFinished(ctx, out.Kind, out.SamplesUsed, out.Votes, out.Lead, out.Distinct, res.Draws, res.Duration)
		return finish(string(out.Kind), nil)
	}

	resampleUsed := 0
	var lastErr error
	budgetSpent := func() (StepResult[V], error) {
		if session.Total() == 0 {
			exErr := &ExhaustedError{
				ResampleCap:    cfg.ResampleCap,
				Rejections:     res.Rejected(),
				OracleFailures: res.OracleFailures,
				LastErr:        lastErr,
			}
			e.logger.OracleExhausted(ctx, exErr)
			return finish(outcomeLabelOracleExhausted, exErr)
		}
		if err := session.Exhaust(); err != nil {
			return finish(outcomeLabelMisuse, err)
		}
		return decided()
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(outcomeLabelCanceled, err)
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return finish(outcomeLabelCanceled, err)
			}
		}

		res.Draws++
		e.metrics.RecordDraw(ctx)
		c, err := o.Sample(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(outcomeLabelCanceled, ctxErr)
			}
			res.OracleFailures++
			resampleUsed++
			lastErr = err
			e.metrics.RecordOracleFailure(ctx)
			e.logger.OracleFailed(ctx, err, res.Draws, resampleUsed)
			if resampleUsed >= cfg.ResampleCap {
				return budgetSpent()
			}
			if err := wait(ctx, backoff); err != nil {
				return finish(outcomeLabelCanceled, err)
			}
			continue
		}

		verdict := redflag.Classify(e.filter, c, cfg.RedFlag)
		if verdict.Rejected() {
			res.Rejections[verdict.Reason]++
			resampleUsed++
			e.metrics.RecordRejection(ctx, string(verdict.Reason))
			e.logger.CandidateRejected(ctx, verdict, res.Draws, resampleUsed)
			if resampleUsed >= cfg.ResampleCap {
				return budgetSpent()
			}
			continue
		}

		state, err := session.Observe(c)
		if err != nil {
			return finish(outcomeLabelMisuse, err)
		}
		if state.IsTerminal() {
			return decided()
		}
	}
}

// wait sleeps for the next backoff delay. A nil or stopped backoff returns at once.
func wait(ctx context.Context, b retry.Backoff) error {
	if b == nil {
		return nil
	}
	d, stop := b.Next()
	if stop || d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsFatal reports whether err from RunStep should abort the whole task
// rather than being retried by the caller.
func IsFatal(err error) bool {
	return errors.Is(err, voting.ErrSessionMisuse) || errors.Is(err, ErrInvalidStepConfig)
}
