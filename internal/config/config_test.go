package config

import (
	"testing"

	"github.com/fyrsmithlabs/maker/internal/redflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "union_bound", cfg.Planner.Strategy)
	assert.Equal(t, 100, cfg.Executor.SampleCap)
	assert.ElementsMatch(t, []string{"default", "json", "single_line"}, cfg.ProfileNames())
}

func TestConfig_Profile(t *testing.T) {
	cfg := Default()

	p, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, redflag.DefaultMaxLengthRatio, p.MaxLengthRatio)
	assert.Equal(t, redflag.FormatNone, p.RequiredFormat)

	p, err = cfg.Profile("json")
	require.NoError(t, err)
	assert.Equal(t, redflag.FormatJSON, p.RequiredFormat)

	_, err = cfg.Profile("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown red-flag profile "missing"`)
}

func TestDefaultProfiles_Independent(t *testing.T) {
	a := DefaultProfiles()
	b := DefaultProfiles()
	a[DefaultProfile].HedgePatterns[0] = "changed"
	assert.NotEqual(t, "changed", b[DefaultProfile].HedgePatterns[0])
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad strategy", func(c *Config) { c.Planner.Strategy = "magic" }, "planner.strategy"},
		{"zero steps", func(c *Config) { c.Planner.Steps = 0 }, "planner.steps"},
		{"zero sample cap", func(c *Config) { c.Executor.SampleCap = 0 }, "executor.sample_cap"},
		{"zero resample cap", func(c *Config) { c.Executor.ResampleCap = 0 }, "executor.resample_cap"},
		{"negative rate", func(c *Config) { c.Executor.RateLimit = -1 }, "executor.rate_limit"},
		{"rate without burst", func(c *Config) { c.Executor.RateLimit = 5; c.Executor.Burst = 0 }, "executor.burst"},
		{"bad profile", func(c *Config) {
			c.RedFlag.Profiles["broken"] = redflag.Config{RequiredFormat: "xml"}
		}, "redflag.profiles.broken"},
		{"bad secrets allowlist", func(c *Config) {
			c.RedFlag.Secrets.Allowlist = []string{"ok", "(unclosed"}
		}, "redflag.secrets.allowlist[1]"},
		{"zero trials", func(c *Config) { c.Simulation.Trials = 0 }, "simulation.trials"},
		{"zero workers", func(c *Config) { c.Simulation.Workers = 0 }, "simulation.workers"},
		{"rate of one", func(c *Config) { c.Simulation.FailureRate = 1 }, "failure_rate"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"telemetry without endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}, "telemetry.endpoint"},
		{"telemetry bad protocol", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Protocol = "udp"
		}, "telemetry.protocol"},
		{"server port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"disabled telemetry is not checked", func(c *Config) { c.Telemetry.Protocol = "udp" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
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

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Planner.Steps = 0
	cfg.Executor.SampleCap = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planner.steps")
	assert.Contains(t, err.Error(), "executor.sample_cap")
}

func TestSecret(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "Secret([REDACTED])", s.GoString())
	assert.Equal(t, "hunter2", s.Value())
	assert.True(t, s.IsSet())

	text, err := s.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]", string(text))

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("250ms")))
	assert.Equal(t, "250ms", d.Duration().String())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
