package executor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/fyrsmithlabs/maker/internal/executor"
)

// Outcome labels used on the outcome counter.
const (
	outcomeLabelOracleExhausted = "oracle_exhausted"
	outcomeLabelCanceled        = "canceled"
	outcomeLabelMisuse          = "misuse"
)

// Metrics provides OpenTelemetry metrics for step execution.
type Metrics struct {
	drawsTotal          metric.Int64Counter
	rejectionsTotal     metric.Int64Counter
	oracleFailuresTotal metric.Int64Counter
	outcomesTotal       metric.Int64Counter

	samplesPerStep metric.Int64Histogram
	stepDuration   metric.Float64Histogram

	initialized bool
}

// NewMetrics creates step metrics with the provided meter.
// If meter is nil, uses the global meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.drawsTotal, err = meter.Int64Counter(
		"maker.step.draws.total",
		metric.WithDescription("Total number of oracle draws"),
		metric.WithUnit("{draw}"),
	)
	if err != nil {
		return nil, err
	}

	m.rejectionsTotal, err = meter.Int64Counter(
		"maker.step.rejections.total",
		metric.WithDescription("Total number of red-flagged candidates"),
		metric.WithUnit("{candidate}"),
	)
	if err != nil {
		return nil, err
	}

	m.oracleFailuresTotal, err = meter.Int64Counter(
		"maker.step.oracle_failures.total",
		metric.WithDescription("Total number of failed oracle draws"),
		metric.WithUnit("{draw}"),
	)
	if err != nil {
		return nil, err
	}

	m.outcomesTotal, err = meter.Int64Counter(
		"maker.step.outcomes.total",
		metric.WithDescription("Total number of finished steps by outcome"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, err
	}

	m.samplesPerStep, err = meter.Int64Histogram(
		"maker.step.samples",
		metric.WithDescription("Accepted votes counted per finished step"),
		metric.WithUnit("{vote}"),
		metric.WithExplicitBucketBoundaries(1, 2, 4, 8, 16, 32, 64, 128, 256),
	)
	if err != nil {
		return nil, err
	}

	m.stepDuration, err = meter.Float64Histogram(
		"maker.step.duration.seconds",
		metric.WithDescription("Wall-clock duration of a step"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordDraw counts one oracle call.
func (m *Metrics) RecordDraw(ctx context.Context) {
	if m == nil || !m.initialized {
		return
	}
	m.drawsTotal.Add(ctx, 1)
}

// RecordRejection counts one red-flagged candidate.
func (m *Metrics) RecordRejection(ctx context.Context, reason string) {
	if m == nil || !m.initialized {
		return
	}
	m.rejectionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordOracleFailure counts one failed draw.
func (m *Metrics) RecordOracleFailure(ctx context.Context) {
	if m == nil || !m.initialized {
		return
	}
	m.oracleFailuresTotal.Add(ctx, 1)
}

// RecordOutcome records a finished step.
func (m *Metrics) RecordOutcome(ctx context.Context, outcome string, samples int, duration time.Duration) {
	if m == nil || !m.initialized {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.outcomesTotal.Add(ctx, 1, attrs)
	m.samplesPerStep.Record(ctx, int64(samples), attrs)
	m.stepDuration.Record(ctx, duration.Seconds(), attrs)
}

// Tracer returns a tracer for the executor package.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

func startStepSpan(ctx context.Context, tracer trace.Tracer, cfg StepConfig) (context.Context, trace.Span) {
	return tracer.Start(ctx, "executor.RunStep", trace.WithAttributes(
		attribute.Int("maker.k", cfg.K),
		attribute.Int("maker.sample_cap", cfg.SampleCap),
		attribute.Int("maker.resample_cap", cfg.ResampleCap),
	))
}

func endStepSpan(span trace.Span, outcome string, draws, samples int, err error) {
	span.SetAttributes(
		attribute.String("maker.outcome", outcome),
		attribute.Int("maker.draws", draws),
		attribute.Int("maker.samples_used", samples),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
