// Package http provides the maker HTTP API over the planner, the red-flag
// filter and the voting rule.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/maker/internal/candidate"
	"github.com/fyrsmithlabs/maker/internal/planner"
	"github.com/fyrsmithlabs/maker/internal/redflag"
	"github.com/fyrsmithlabs/maker/internal/telemetry"
	"github.com/fyrsmithlabs/maker/internal/voting"
)

const (
	maxTableRows = 64
	maxVoteInput = 10_000
)

// Server provides HTTP endpoints for maker.
type Server struct {
	echo     *echo.Echo
	planner  *planner.Planner
	filter   *redflag.Filter
	profiles map[string]redflag.Config
	tel      *telemetry.Telemetry
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
}

// Deps are the services the server exposes. Planner and Profiles are
// required; the rest are optional.
type Deps struct {
	Planner  *planner.Planner
	Filter   *redflag.Filter
	Profiles map[string]redflag.Config

	// Gatherer serves GET /metrics when set.
	Gatherer  prometheus.Gatherer
	Metrics   *HTTPMetrics
	Telemetry *telemetry.Telemetry
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, logger *zap.Logger, cfg *Config) (*Server, error) {
	if deps.Planner == nil {
		return nil, fmt.Errorf("planner cannot be nil")
	}
	if len(deps.Profiles) == 0 {
		return nil, fmt.Errorf("at least one red-flag profile is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}
	if deps.Filter == nil {
		deps.Filter = redflag.NewFilter()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("1M"))
	if deps.Metrics != nil {
		e.Use(deps.Metrics.MetricsMiddleware())
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		planner:  deps.Planner,
		filter:   deps.Filter,
		profiles: deps.Profiles,
		tel:      deps.Telemetry,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes(deps.Gatherer)

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	s.echo.GET("/health", s.handleHealth)
	if gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.echo.Group("/api/v1")
	v1.POST("/plan", s.handlePlan)
	v1.POST("/plan/table", s.handleTable)
	v1.GET("/profiles", s.handleProfiles)
	v1.POST("/classify", s.handleClassify)
	v1.POST("/vote", s.handleVote)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Version: s.config.Version}
	if s.tel != nil && s.tel.IsEnabled() {
		resp.Telemetry = "ok"
		if s.tel.Health().Degraded {
			resp.Telemetry = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// plannerFor returns the server planner, or one for an explicit strategy.
func (s *Server) plannerFor(strategy string) (*planner.Planner, error) {
	if strategy == "" {
		return s.planner, nil
	}
	st, err := planner.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	return planner.New(planner.WithStrategy(st)), nil
}

func (s *Server) handlePlan(c echo.Context) error {
	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid plan request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CostPerSample < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "cost_per_sample must be >= 0")
	}
	pl, err := s.plannerFor(req.Strategy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var plan planner.Plan
	if req.K > 0 {
		plan, err = pl.ForMargin(req.Steps, req.Accuracy, req.K)
	} else {
		plan, err = pl.Plan(req.Steps, req.Accuracy, req.Target)
	}
	if err != nil {
		return paramError(err)
	}

	resp := PlanResponse{Plan: plan}
	if req.CostPerSample > 0 {
		resp.Cost = plan.Cost(req.CostPerSample)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTable(c echo.Context) error {
	var req TableRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Steps) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "steps field is required")
	}
	if len(req.Steps) > maxTableRows {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("at most %d step counts per table", maxTableRows))
	}
	pl, err := s.plannerFor(req.Strategy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rows, err := pl.Table(req.Steps, req.Accuracy, req.Target)
	if err != nil {
		return paramError(err)
	}
	return c.JSON(http.StatusOK, TableResponse{Rows: rows})
}

func (s *Server) handleProfiles(c echo.Context) error {
	names := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return c.JSON(http.StatusOK, ProfilesResponse{Profiles: names})
}

func (s *Server) handleClassify(c echo.Context) error {
	var req ClassifyRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid classify request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	name := req.Profile
	if name == "" {
		name = "default"
	}
	cfg, ok := s.profiles[name]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown red-flag profile %q", name))
	}
	if req.ExpectedLength != nil {
		if *req.ExpectedLength < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "expected_length must be >= 0")
		}
		cfg.ExpectedLength = *req.ExpectedLength
	}

	cand := candidate.FromText(req.Text, nil)
	verdict := redflag.Classify(s.filter, cand, cfg)

	s.logger.Debug("classified candidate",
		zap.String("profile", name),
		zap.Bool("accepted", verdict.Accepted),
		zap.String("reason", string(verdict.Reason)),
	)

	return c.JSON(http.StatusOK, ClassifyResponse{
		Profile: name,
		Length:  cand.Length,
		Verdict: verdict,
	})
}

func (s *Server) handleVote(c echo.Context) error {
	var req VoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Values) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "values field is required")
	}
	if len(req.Values) > maxVoteInput {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("at most %d values per vote", maxVoteInput))
	}
	sampleCap := req.SampleCap
	if sampleCap == 0 {
		sampleCap = len(req.Values)
	}

	var opts []voting.SessionOption[string]
	if req.Normalize {
		opts = append(opts, voting.WithCanonical(voting.NormalizeText))
	}
	out, ok, err := voting.Decide(req.Values, req.K, sampleCap, opts...)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !ok {
		return c.JSON(http.StatusOK, VoteResponse{Consumed: len(req.Values)})
	}
	return c.JSON(http.StatusOK, VoteResponse{
		Decided:  true,
		Consumed: out.SamplesUsed,
		Outcome:  &out,
	})
}

func paramError(err error) error {
	var pe *planner.ParamError
	if errors.As(err, &pe) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
