package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/maker/internal/http"
	"github.com/fyrsmithlabs/maker/internal/simulation"
)

func newSimulateCmd(a *app) *cobra.Command {
	var (
		trials, steps, workers, wrong int
		k, sampleCap, resampleCap     int
		accuracy, target              float64
		redFlagRate, failureRate      float64
		seed                          uint64
		profile, metricsAddr          string
		paced                         bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Compare a single agent with voting on a synthetic task",
		Long: `Run many trials of a synthetic task twice: once with one sample per step,
where the first wrong step fails the task, and once with every step decided
by vote. Reports both success rates next to their predictions.

When --k is not set, k is planned from the steps, accuracy and target.

Examples:
  maker simulate --steps 100 --accuracy 0.8 --k 7
  maker simulate --trials 5000 --red-flag-rate 0.1 --metrics-addr :9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sc := a.cfg.Simulation
			overrideIf(cmd, "trials", &sc.Trials, trials)
			overrideIf(cmd, "steps", &sc.Steps, steps)
			overrideIf(cmd, "workers", &sc.Workers, workers)
			overrideIf(cmd, "wrong-values", &sc.WrongValues, wrong)
			overrideIf(cmd, "red-flag-rate", &sc.RedFlagRate, redFlagRate)
			overrideIf(cmd, "failure-rate", &sc.FailureRate, failureRate)
			overrideIf(cmd, "seed", &sc.Seed, seed)

			pc := a.cfg.Planner
			overrideIf(cmd, "accuracy", &pc.Accuracy, accuracy)
			overrideIf(cmd, "target", &pc.Target, target)

			ec := a.cfg.Executor
			overrideIf(cmd, "sample-cap", &ec.SampleCap, sampleCap)
			overrideIf(cmd, "resample-cap", &ec.ResampleCap, resampleCap)

			if k == 0 {
				pl, err := newPlanner(pc.Strategy)
				if err != nil {
					return err
				}
				plan, err := pl.Plan(sc.Steps, pc.Accuracy, pc.Target)
				if err != nil {
					return fmt.Errorf("cannot plan k (set --k to skip planning): %w", err)
				}
				k = plan.K
			}

			rf, err := a.cfg.Profile(profile)
			if err != nil {
				return err
			}

			params := simulation.Params{
				Trials:  sc.Trials,
				Workers: sc.Workers,
				Seed:    sc.Seed,
				Oracle: simulation.OracleConfig{
					Accuracy:    pc.Accuracy,
					WrongValues: sc.WrongValues,
					RedFlagRate: sc.RedFlagRate,
					FailureRate: sc.FailureRate,
				},
				Voting: simulation.VotingParams{
					Steps:       sc.Steps,
					K:           k,
					SampleCap:   ec.SampleCap,
					ResampleCap: ec.ResampleCap,
					RedFlag:     rf,
				},
			}
			if err := params.Validate(); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := simulation.NewMetrics(reg)

			if metricsAddr != "" {
				stop, err := a.startMetricsServer(ctx, metricsAddr, reg)
				if err != nil {
					return err
				}
				defer stop()
			}

			filter, err := a.redFlagFilter()
			if err != nil {
				return err
			}
			runner := simulation.NewRunner(
				simulation.WithExecutor(a.newExecutor(filter, paced)),
				simulation.WithMetrics(metrics),
				simulation.WithLogger(a.logger.Underlying()),
			)
			rep, err := runner.Run(ctx, params)
			if err != nil {
				return err
			}
			// Push step metrics out before the report so both describe the same run.
			if err := a.tel.ForceFlush(ctx); err != nil {
				a.logger.Warn(ctx, "telemetry flush failed", zap.Error(err))
			}
			return a.emit(cmd, rep, func(w io.Writer) { fmt.Fprintln(w, renderReport(rep)) })
		},
	}

	cmd.Flags().IntVar(&trials, "trials", 0, "number of trials (default simulation.trials)")
	cmd.Flags().IntVar(&steps, "steps", 0, "steps per task (default simulation.steps)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent trials (default simulation.workers)")
	cmd.Flags().IntVar(&wrong, "wrong-values", 0, "distinct wrong answers; 1 is the worst case")
	cmd.Flags().Float64Var(&accuracy, "accuracy", 0, "per-step accuracy (default planner.accuracy)")
	cmd.Flags().Float64Var(&target, "target", 0, "target success used to plan k (default planner.target)")
	cmd.Flags().IntVar(&k, "k", 0, "voting margin; planned when unset")
	cmd.Flags().IntVar(&sampleCap, "sample-cap", 0, "accepted samples per step (default executor.sample_cap)")
	cmd.Flags().IntVar(&resampleCap, "resample-cap", 0, "rejections and failures per step (default executor.resample_cap)")
	cmd.Flags().Float64Var(&redFlagRate, "red-flag-rate", 0, "probability a sample is hedged")
	cmd.Flags().Float64Var(&failureRate, "failure-rate", 0, "probability a sample fails")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (default simulation.seed)")
	cmd.Flags().StringVar(&profile, "profile", "", "red-flag profile for the voting chain")
	cmd.Flags().BoolVar(&paced, "paced", false, "apply executor rate limit and failure backoff")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	return cmd
}

// startMetricsServer serves the HTTP API with reg on /metrics until stop is called.
func (a *app) startMetricsServer(ctx context.Context, addr string, reg *prometheus.Registry) (stop func(), err error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid --metrics-addr port %q", portStr)
	}

	pl, err := newPlanner(a.cfg.Planner.Strategy)
	if err != nil {
		return nil, err
	}
	srv, err := httpserver.NewServer(httpserver.Deps{
		Planner:   pl,
		Profiles:  a.cfg.RedFlag.Profiles,
		Gatherer:  reg,
		Telemetry: a.tel,
	}, a.logger.Underlying(), &httpserver.Config{Host: host, Port: port, Version: version})
	if err != nil {
		return nil, err
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(ctx, "metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn(ctx, "metrics server shutdown failed", zap.Error(err))
		}
	}, nil
}

func renderReport(rep simulation.Report) string {
	return renderFields("Simulation", []field{
		kv("trials", "%d", rep.Trials),
		kv("steps", "%d", rep.Steps),
		kv("accuracy", "%g", rep.Accuracy),
		kv("margin k", "%d", rep.K),
		kv("standard success", "%s", percent(rep.StandardRate)),
		kv("standard theoretical", "%s", percent(rep.StandardTheoretical)),
		kv("voting success", "%s", percent(rep.VotingRate)),
		kv("voting predicted", "%s", percent(rep.VotingPredicted)),
		kv("voting bound", "%s", percent(rep.VotingBound)),
		kv("calls per task", "%.1f", rep.AvgCallsPerTrial),
		kv("calls per step", "%.2f (planned %.2f)", rep.AvgCallsPerStep, rep.ExpectedCallsPerStep),
		kv("exhausted steps", "%d", rep.ExhaustedSteps),
		kv("rejections", "%d", rep.Rejections),
		kv("oracle failures", "%d", rep.OracleFailures),
		kv("reliability gain", "%.0fx", rep.Gain),
		kv("elapsed", "%s", rep.Duration.Round(time.Millisecond)),
	}) + "\n" + dimStyle.Render("run "+rep.RunID)
}
