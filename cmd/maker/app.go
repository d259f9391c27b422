package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/maker/internal/config"
	"github.com/fyrsmithlabs/maker/internal/executor"
	"github.com/fyrsmithlabs/maker/internal/logging"
	"github.com/fyrsmithlabs/maker/internal/redflag"
	"github.com/fyrsmithlabs/maker/internal/secrets"
	"github.com/fyrsmithlabs/maker/internal/telemetry"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// app holds what every subcommand shares once the root has run its setup.
type app struct {
	configPath string
	logLevel   string
	output     string

	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry

	execMetrics *executor.Metrics
	filter      *redflag.Filter
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "maker",
		Short: "Reliability layer for long chains of unreliable steps",
		Long: `maker decides each step of a long task by first-to-ahead-by-k voting over
independent samples, discards red-flagged samples before they vote, and
plans the margin k that keeps the whole task above a target success rate.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/maker/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputText, "output format: text or json")

	root.AddCommand(
		newPlanCmd(a),
		newTableCmd(a),
		newClassifyCmd(a),
		newVoteCmd(a),
		newSimulateCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads config and builds the logger and telemetry. It tags the
// command context with a fresh run ID.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.output != outputText && a.output != outputJSON {
		return fmt.Errorf("unknown output format %q (want text or json)", a.output)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	ctx := cmd.Context()
	a.tel, err = telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	lcfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	// The CLI ships no OTEL log exporter; logging.otel only applies to
	// programs that pass their own provider.
	a.logger, err = logging.NewLogger(lcfg, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.execMetrics, err = executor.NewMetrics(a.tel.Meter(executor.InstrumentationName))
	if err != nil {
		a.logger.Warn(ctx, "executor metrics unavailable", zap.Error(err))
	}

	ctx = logging.WithRunID(ctx, uuid.NewString())
	ctx = logging.WithLogger(ctx, a.logger)
	cmd.SetContext(ctx)

	a.logger.Debug(ctx, "maker started", startupFields(cmd.CommandPath(), cfg, a.tel.IsEnabled())...)
	return nil
}

// startupFields describes the effective setup. The telemetry token is only
// ever logged by length.
func startupFields(command string, cfg *config.Config, telemetryOn bool) []zap.Field {
	fields := []zap.Field{
		zap.String("command", command),
		zap.String("version", version),
		zap.Bool("telemetry", telemetryOn),
		zap.String("planner.strategy", cfg.Planner.Strategy),
		zap.Bool("redflag.secrets", cfg.RedFlag.Secrets.Enabled),
	}
	if cfg.Telemetry.Enabled {
		fields = append(fields,
			zap.String("telemetry.endpoint", cfg.Telemetry.Endpoint),
			zap.String("telemetry.protocol", cfg.Telemetry.Protocol),
		)
		if cfg.Telemetry.Token.IsSet() {
			fields = append(fields, logging.Secret("telemetry.token", cfg.Telemetry.Token))
		}
	}
	return fields
}

// close flushes the logger and shuts telemetry down.
func (a *app) close() {
	if a.tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tel.Shutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync() // Best-effort sync on exit
	}
}

// redFlagFilter returns the filter shared by classify, simulate and serve.
// It adds the secret-leak rule when redflag.secrets.enabled is set.
func (a *app) redFlagFilter() (*redflag.Filter, error) {
	if a.filter != nil {
		return a.filter, nil
	}
	sc := a.cfg.RedFlag.Secrets
	if !sc.Enabled {
		a.filter = redflag.NewFilter()
		return a.filter, nil
	}

	allow, err := secrets.NewAllowlist(sc.Allowlist...)
	if err != nil {
		return nil, err
	}
	if sc.AllowlistFile != "" {
		fromFile, err := secrets.LoadAllowlist(sc.AllowlistFile)
		if err != nil {
			return nil, err
		}
		allow = secrets.Merge(allow, fromFile)
	}
	d, err := secrets.NewDetector(allow)
	if err != nil {
		return nil, fmt.Errorf("failed to build secret detector: %w", err)
	}
	a.filter = redflag.NewFilter(secrets.NewRule(d))
	return a.filter, nil
}

// newExecutor builds a step executor from the executor section. paced adds
// the rate limiter and failure backoff; synthetic oracles run unpaced.
func (a *app) newExecutor(filter *redflag.Filter, paced bool) *executor.StepExecutor {
	opts := []executor.Option{
		executor.WithFilter(filter),
		executor.WithLogger(a.logger.Underlying()),
		executor.WithMetrics(a.execMetrics),
		executor.WithTracer(a.tel.Tracer(executor.InstrumentationName)),
	}
	if paced {
		ec := a.cfg.Executor
		if ec.RateLimit > 0 {
			opts = append(opts, executor.WithRateLimiter(rate.NewLimiter(rate.Limit(ec.RateLimit), ec.Burst)))
		}
		if ec.FailureBackoff > 0 {
			opts = append(opts, executor.WithFailureBackoff(
				executor.ExponentialBackoff(ec.FailureBackoff.Duration(), ec.FailureBackoffMax.Duration())))
		}
	}
	return executor.New(opts...)
}

// overrideIf copies v into dst when the named flag was set on the command line.
func overrideIf[T any](cmd *cobra.Command, name string, dst *T, v T) {
	if cmd.Flags().Changed(name) {
		*dst = v
	}
}
