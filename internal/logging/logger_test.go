package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/maker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// jsonLogger returns a JSON logger writing into a buffer with sampling off.
func jsonLogger(t *testing.T, mutate func(*Config)) (*Logger, *bytes.Buffer) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Format = "json"
	cfg.Level = TraceLevel
	cfg.Sampling.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	buf := &bytes.Buffer{}
	l, err := newLogger(cfg, nil, zapcore.AddSync(buf))
	require.NoError(t, err)
	return l, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, logger.Underlying())
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestNewLogger_OTELOnly(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Console = false
	cfg.Output.OTEL = true

	logger, err := NewLogger(cfg, noop.NewLoggerProvider())
	require.NoError(t, err)
	logger.Warn(context.Background(), "bridged")

	_, err = NewLogger(cfg, nil)
	assert.Error(t, err, "otel output without a provider leaves no core")
}

func TestLogger_LevelsAndContext(t *testing.T) {
	logger, buf := jsonLogger(t, nil)
	ctx := WithRunID(context.Background(), "run-7")
	ctx = WithStepIndex(ctx, 2)

	logger.Trace(ctx, "trace message")
	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message", zap.Int("k", 3))
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 5)
	assert.Equal(t, "trace", lines[0]["level"])
	assert.Equal(t, "info message", lines[2]["msg"])
	assert.Equal(t, float64(3), lines[2]["k"])
	for _, line := range lines {
		assert.Equal(t, "run-7", line["run.id"])
		assert.Equal(t, float64(2), line["step.index"])
		assert.Equal(t, "maker", line["service"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := jsonLogger(t, func(c *Config) { c.Level = zapcore.WarnLevel })
	ctx := context.Background()

	logger.Debug(ctx, "hidden")
	logger.Info(ctx, "hidden")
	logger.Warn(ctx, "shown")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.False(t, logger.Enabled(zapcore.InfoLevel))
}

func TestLogger_WithAndNamed(t *testing.T) {
	logger, buf := jsonLogger(t, nil)
	child := logger.Named("executor").With(zap.String("component", "vote"))
	child.Info(context.Background(), "hello")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "executor", lines[0]["logger"])
	assert.Equal(t, "vote", lines[0]["component"])
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	logger, buf := jsonLogger(t, nil)
	ctx := context.Background()

	logger.Info(ctx, "oracle configured",
		zap.String("api_key", "abc"),
		zap.String("note", "Bearer eyJhbGciOi"),
		zap.String("model", "small"),
		Secret("endpoint_token", config.Secret("hunter2")),
	)
	logger.With(zap.String("token", "xyz")).Info(ctx, "child")
	logger.Info(ctx, "key is sk-abcdefghijklmnopqrstu")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "[REDACTED]", lines[0]["api_key"])
	assert.Equal(t, "[REDACTED:pattern]", lines[0]["note"])
	assert.Equal(t, "small", lines[0]["model"])
	assert.Equal(t, "[REDACTED:7]", lines[0]["endpoint_token"])
	assert.Equal(t, "[REDACTED]", lines[1]["token"])
	assert.Equal(t, "[REDACTED:pattern]", lines[2]["msg"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestLogger_RedactionDisabled(t *testing.T) {
	logger, buf := jsonLogger(t, func(c *Config) { c.Redaction.Enabled = false })
	logger.Info(context.Background(), "raw", zap.String("api_key", "abc"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "abc", lines[0]["api_key"])
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("text", "short", 10).String)
	assert.Equal(t, "héll…", Excerpt("text", "héllo world", 4).String)
	assert.Equal(t, "anything", Excerpt("text", "anything", 0).String)
}

func TestRedactedString(t *testing.T) {
	assert.Equal(t, "[REDACTED:6]", RedactedString("k", "secret").String)
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error(context.Background(), "discarded")
	assert.NoError(t, l.Sync())
}
