package logging

import (
	"testing"

	"github.com/fyrsmithlabs/maker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, zapcore.WarnLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.True(t, cfg.Output.Console)
	assert.False(t, cfg.Output.OTEL)
	assert.Equal(t, "maker", cfg.Fields["service"])
	assert.True(t, cfg.Redaction.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad format",
			mutate:  func(c *Config) { c.Format = "xml" },
			wantErr: "format must be",
		},
		{
			name: "no outputs",
			mutate: func(c *Config) {
				c.Output.Console = false
				c.Output.OTEL = false
			},
			wantErr: "at least one output",
		},
		{
			name:    "zero tick",
			mutate:  func(c *Config) { c.Sampling.Tick = 0 },
			wantErr: "sampling tick",
		},
		{
			name: "error level sampled",
			mutate: func(c *Config) {
				c.Sampling.Levels[zapcore.ErrorLevel] = LevelSamplingConfig{Initial: 1}
			},
			wantErr: "not allowed",
		},
		{
			name:    "negative caller skip",
			mutate:  func(c *Config) { c.Caller.Enabled = true; c.Caller.Skip = -1 },
			wantErr: "caller skip",
		},
		{
			name:    "bad pattern",
			mutate:  func(c *Config) { c.Redaction.Patterns = []string{"("} },
			wantErr: "invalid redaction pattern",
		},
		{
			name:    "empty field value",
			mutate:  func(c *Config) { c.Fields["env"] = "" },
			wantErr: "empty value",
		},
		{
			name:   "sampling disabled ignores tick",
			mutate: func(c *Config) { c.Sampling.Enabled = false; c.Sampling.Tick = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"trace", TraceLevel},
		{"TRACE", TraceLevel},
		{"debug", zapcore.DebugLevel},
		{"Info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := LevelFromString("loud")
	assert.Error(t, err)
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "trace", LevelName(TraceLevel))
	assert.Equal(t, "info", LevelName(zapcore.InfoLevel))
}

func TestFromConfig(t *testing.T) {
	cfg, err := FromConfig(config.LoggingConfig{Level: "TRACE", Format: "json", Sampling: false, OTEL: true})
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.False(t, cfg.Sampling.Enabled)
	assert.True(t, cfg.Output.OTEL)
	assert.True(t, cfg.Output.Console)

	cfg, err = FromConfig(config.LoggingConfig{})
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)

	_, err = FromConfig(config.LoggingConfig{Level: "loud"})
	assert.ErrorContains(t, err, "logging.level")

	_, err = FromConfig(config.LoggingConfig{Format: "xml"})
	assert.Error(t, err)
}
