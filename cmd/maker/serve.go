package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/maker/internal/http"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner, red-flag filter and voting over HTTP",
		Long: `Start an HTTP server with these endpoints:

  GET  /health
  GET  /metrics
  GET  /api/v1/profiles
  POST /api/v1/plan
  POST /api/v1/plan/table
  POST /api/v1/classify
  POST /api/v1/vote

The server stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sc := a.cfg.Server
			overrideIf(cmd, "host", &sc.Host, host)
			overrideIf(cmd, "port", &sc.Port, port)
			if sc.Port < 0 || sc.Port > 65535 {
				return fmt.Errorf("--port must be in [0, 65535], got %d", sc.Port)
			}

			pl, err := newPlanner(a.cfg.Planner.Strategy)
			if err != nil {
				return err
			}
			filter, err := a.redFlagFilter()
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			zl := a.logger.Underlying()
			srv, err := httpserver.NewServer(httpserver.Deps{
				Planner:   pl,
				Filter:    filter,
				Profiles:  a.cfg.RedFlag.Profiles,
				Gatherer:  reg,
				Metrics:   httpserver.NewHTTPMetrics(a.tel.Meter(httpserver.InstrumentationName), zl),
				Telemetry: a.tel,
			}, zl, &httpserver.Config{Host: sc.Host, Port: sc.Port, Version: version})
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout.Duration())
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown failed: %w", err)
			}
			if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Warn(ctx, "server exited with error", zap.Error(err))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default server.port)")
	return cmd
}
