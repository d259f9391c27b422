// Package config loads maker configuration from a YAML file and MAKER_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"time"

	"github.com/fyrsmithlabs/maker/internal/planner"
	"github.com/fyrsmithlabs/maker/internal/redflag"
)

// DefaultProfile is the red-flag profile used when none is named.
const DefaultProfile = "default"

// Config holds the complete maker configuration.
type Config struct {
	Planner    PlannerConfig    `koanf:"planner" yaml:"planner"`
	Executor   ExecutorConfig   `koanf:"executor" yaml:"executor"`
	RedFlag    RedFlagConfig    `koanf:"redflag" yaml:"redflag"`
	Simulation SimulationConfig `koanf:"simulation" yaml:"simulation"`
	Logging    LoggingConfig    `koanf:"logging" yaml:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry" yaml:"telemetry"`
	Server     ServerConfig     `koanf:"server" yaml:"server"`
}

// ServerConfig holds `maker serve` settings.
type ServerConfig struct {
	Host            string   `koanf:"host" yaml:"host"`
	Port            int      `koanf:"port" yaml:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// PlannerConfig holds the inputs of a reliability plan.
type PlannerConfig struct {
	Steps    int     `koanf:"steps" yaml:"steps"`
	Accuracy float64 `koanf:"accuracy" yaml:"accuracy"`
	Target   float64 `koanf:"target" yaml:"target"`
	Strategy string  `koanf:"strategy" yaml:"strategy"`
}

// ExecutorConfig holds per-step caps and oracle pacing.
type ExecutorConfig struct {
	SampleCap         int      `koanf:"sample_cap" yaml:"sample_cap"`
	ResampleCap       int      `koanf:"resample_cap" yaml:"resample_cap"`
	RateLimit         float64  `koanf:"rate_limit" yaml:"rate_limit"` // draws per second, 0 = unlimited
	Burst             int      `koanf:"burst" yaml:"burst"`
	FailureBackoff    Duration `koanf:"failure_backoff" yaml:"failure_backoff"`
	FailureBackoffMax Duration `koanf:"failure_backoff_max" yaml:"failure_backoff_max"`
}

// RedFlagConfig holds named red-flag profiles and the optional secret scan.
type RedFlagConfig struct {
	Profiles map[string]redflag.Config `koanf:"profiles" yaml:"profiles"`
	Secrets  SecretsConfig             `koanf:"secrets" yaml:"secrets"`
}

// SecretsConfig enables rejecting candidates that contain credentials.
// Allowlist entries are regular expressions; matching findings are ignored.
// AllowlistFile names a gitleaks-style TOML file with more of them.
type SecretsConfig struct {
	Enabled       bool     `koanf:"enabled" yaml:"enabled"`
	Allowlist     []string `koanf:"allowlist" yaml:"allowlist"`
	AllowlistFile string   `koanf:"allowlist_file" yaml:"allowlist_file"`
}

// SimulationConfig holds `maker simulate` parameters.
type SimulationConfig struct {
	Trials      int     `koanf:"trials" yaml:"trials"`
	Steps       int     `koanf:"steps" yaml:"steps"`
	Workers     int     `koanf:"workers" yaml:"workers"`
	WrongValues int     `koanf:"wrong_values" yaml:"wrong_values"`
	RedFlagRate float64 `koanf:"red_flag_rate" yaml:"red_flag_rate"`
	FailureRate float64 `koanf:"failure_rate" yaml:"failure_rate"`
	Seed        uint64  `koanf:"seed" yaml:"seed"`
}

// LoggingConfig holds the logging knobs exposed to users.
type LoggingConfig struct {
	Level    string `koanf:"level" yaml:"level"`
	Format   string `koanf:"format" yaml:"format"`
	Sampling bool   `koanf:"sampling" yaml:"sampling"`
	OTEL     bool   `koanf:"otel" yaml:"otel"`
}

// TelemetryConfig holds OTLP export settings.
type TelemetryConfig struct {
	Enabled       bool     `koanf:"enabled" yaml:"enabled"`
	Endpoint      string   `koanf:"endpoint" yaml:"endpoint"`
	Protocol      string   `koanf:"protocol" yaml:"protocol"` // grpc or http/protobuf
	Insecure      bool     `koanf:"insecure" yaml:"insecure"`
	TLSSkipVerify bool     `koanf:"tls_skip_verify" yaml:"tls_skip_verify"`
	ServiceName   string   `koanf:"service_name" yaml:"service_name"`
	SampleRate    float64  `koanf:"sample_rate" yaml:"sample_rate"`
	Token         Secret   `koanf:"token" yaml:"token"`
	ExportEvery   Duration `koanf:"export_interval" yaml:"export_interval"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Planner: PlannerConfig{
			Steps:    1_000_000,
			Accuracy: 0.99,
			Target:   0.95,
			Strategy: string(planner.StrategyUnionBound),
		},
		Executor: ExecutorConfig{
			SampleCap:         100,
			ResampleCap:       50,
			Burst:             1,
			FailureBackoff:    Duration(100 * time.Millisecond),
			FailureBackoffMax: Duration(5 * time.Second),
		},
		RedFlag: RedFlagConfig{
			Profiles: DefaultProfiles(),
		},
		Simulation: SimulationConfig{
			Trials:      1000,
			Steps:       100,
			Workers:     runtime.NumCPU(),
			WrongValues: 1,
			Seed:        1,
		},
		Logging: LoggingConfig{
			Level:    "warn",
			Format:   "console",
			Sampling: true,
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
			ServiceName: "maker",
			SampleRate:  1.0,
			ExportEvery: Duration(15 * time.Second),
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9090,
			ShutdownTimeout: Duration(10 * time.Second),
		},
	}
}

// DefaultProfiles returns the built-in red-flag profiles.
func DefaultProfiles() map[string]redflag.Config {
	jsonProfile := redflag.DefaultConfig(0)
	jsonProfile.RequiredFormat = redflag.FormatJSON

	lineProfile := redflag.DefaultConfig(0)
	lineProfile.RequiredFormat = redflag.FormatSingleLine

	return map[string]redflag.Config{
		DefaultProfile: redflag.DefaultConfig(0),
		"json":         jsonProfile,
		"single_line":  lineProfile,
	}
}

// Profile returns the named red-flag profile. An empty name selects DefaultProfile.
func (c *Config) Profile(name string) (redflag.Config, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := c.RedFlag.Profiles[name]
	if !ok {
		return redflag.Config{}, fmt.Errorf("unknown red-flag profile %q (have %v)", name, c.ProfileNames())
	}
	return p, nil
}

// ProfileNames returns the configured profile names, sorted.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.RedFlag.Profiles))
	for n := range c.RedFlag.Profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if _, err := planner.ParseStrategy(c.Planner.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("planner.strategy: %w", err))
	}
	if c.Planner.Steps < 1 {
		errs = append(errs, fmt.Errorf("planner.steps must be >= 1, got %d", c.Planner.Steps))
	}

	if c.Executor.SampleCap < 1 {
		errs = append(errs, fmt.Errorf("executor.sample_cap must be >= 1, got %d", c.Executor.SampleCap))
	}
	if c.Executor.ResampleCap < 1 {
		errs = append(errs, fmt.Errorf("executor.resample_cap must be >= 1, got %d", c.Executor.ResampleCap))
	}
	if c.Executor.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("executor.rate_limit must be >= 0, got %f", c.Executor.RateLimit))
	}
	if c.Executor.RateLimit > 0 && c.Executor.Burst < 1 {
		errs = append(errs, errors.New("executor.burst must be >= 1 when rate_limit is set"))
	}

	for _, name := range c.ProfileNames() {
		if err := c.RedFlag.Profiles[name].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("redflag.profiles.%s: %w", name, err))
		}
	}
	for i, pattern := range c.RedFlag.Secrets.Allowlist {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("redflag.secrets.allowlist[%d]: %w", i, err))
		}
	}

	if c.Simulation.Trials < 1 {
		errs = append(errs, fmt.Errorf("simulation.trials must be >= 1, got %d", c.Simulation.Trials))
	}
	if c.Simulation.Steps < 1 {
		errs = append(errs, fmt.Errorf("simulation.steps must be >= 1, got %d", c.Simulation.Steps))
	}
	if c.Simulation.Workers < 1 {
		errs = append(errs, fmt.Errorf("simulation.workers must be >= 1, got %d", c.Simulation.Workers))
	}
	if c.Simulation.WrongValues < 1 {
		errs = append(errs, fmt.Errorf("simulation.wrong_values must be >= 1, got %d", c.Simulation.WrongValues))
	}
	if !isRate(c.Simulation.RedFlagRate) || !isRate(c.Simulation.FailureRate) {
		errs = append(errs, errors.New("simulation.red_flag_rate and failure_rate must be in [0, 1)"))
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry.endpoint required when telemetry is enabled"))
		}
		if c.Telemetry.ServiceName == "" {
			errs = append(errs, errors.New("telemetry.service_name required when telemetry is enabled"))
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			errs = append(errs, fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol))
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port))
	}

	return errors.Join(errs...)
}

func isRate(r float64) bool {
	return r >= 0 && r < 1
}
