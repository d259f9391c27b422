package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func fieldMap(fields []zap.Field) map[string]zap.Field {
	m := make(map[string]zap.Field, len(fields))
	for _, f := range fields {
		m[f.Key] = f
	}
	return m
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_Trace(t *testing.T) {
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(tracetest.NewSpanRecorder()))
	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	fields := fieldMap(ContextFields(ctx))
	require.Contains(t, fields, "trace_id")
	require.Contains(t, fields, "span_id")
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"].String)
}

func TestContextFields_RunTaskStep(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithTaskID(ctx, "hanoi.20")
	ctx = WithStepIndex(ctx, 0)

	fields := fieldMap(ContextFields(ctx))
	assert.Len(t, fields, 3)
	assert.Equal(t, "run-1", fields["run.id"].String)
	assert.Equal(t, "hanoi.20", fields["task.id"].String)
	assert.Equal(t, int64(0), fields["step.index"].Integer)
}

func TestWithRunID_Invalid(t *testing.T) {
	assert.Panics(t, func() { WithRunID(context.Background(), "") })
	assert.Panics(t, func() { WithRunID(context.Background(), "has space") })
	assert.Panics(t, func() { WithTaskID(context.Background(), "semi;colon") })
}

func TestWithStepIndex_Negative(t *testing.T) {
	assert.Panics(t, func() { WithStepIndex(context.Background(), -1) })
}

func TestStepIndexFromContext_Missing(t *testing.T) {
	_, ok := StepIndexFromContext(context.Background())
	assert.False(t, ok)
}

func TestFromContext(t *testing.T) {
	nop := FromContext(context.Background())
	require.NotNil(t, nop)
	nop.Info(context.Background(), "discarded")

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
}
