package simulation

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/maker/internal/executor"
	"github.com/fyrsmithlabs/maker/internal/logging"
	"github.com/fyrsmithlabs/maker/internal/planner"
	"github.com/fyrsmithlabs/maker/internal/redflag"
)

// Params configures a batch of trials.
type Params struct {
	Trials  int    `json:"trials"`
	Workers int    `json:"workers"`
	Seed    uint64 `json:"seed"`

	Oracle OracleConfig `json:"oracle"`
	Voting VotingParams `json:"voting"`
}

// Validate checks the batch and its parts.
func (p Params) Validate() error {
	if p.Trials < 1 {
		return fmt.Errorf("trials must be >= 1, got %d", p.Trials)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", p.Workers)
	}
	if err := p.Oracle.Validate(); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	if p.Voting.Steps < 1 {
		return fmt.Errorf("steps must be >= 1, got %d", p.Voting.Steps)
	}
	if err := p.Voting.StepConfig().Validate(); err != nil {
		return fmt.Errorf("voting: %w", err)
	}
	return nil
}

// Report compares observed rates with predictions.
type Report struct {
	RunID    string        `json:"run_id"`
	Trials   int           `json:"trials"`
	Steps    int           `json:"steps"`
	Accuracy float64       `json:"accuracy"`
	K        int           `json:"k"`
	Duration time.Duration `json:"duration"`

	StandardSuccesses   int     `json:"standard_successes"`
	StandardRate        float64 `json:"standard_rate"`
	StandardTheoretical float64 `json:"standard_theoretical"`

	VotingSuccesses int     `json:"voting_successes"`
	VotingRate      float64 `json:"voting_rate"`
	// VotingPredicted compounds the two-candidate ruin probability over the
	// task. It ignores red flags, failures and the sample cap.
	VotingPredicted float64 `json:"voting_predicted"`
	// VotingBound is the planner's conservative bound for the same k.
	VotingBound float64 `json:"voting_bound"`

	TotalCalls           int     `json:"total_calls"`
	AvgCallsPerTrial     float64 `json:"avg_calls_per_trial"`
	AvgCallsPerStep      float64 `json:"avg_calls_per_step"`
	ExpectedCallsPerStep float64 `json:"expected_calls_per_step"`
	ExhaustedSteps       int     `json:"exhausted_steps"`
	Rejections           int     `json:"rejections"`
	OracleFailures       int     `json:"oracle_failures"`

	// Gain is VotingRate over StandardRate, with StandardRate floored at 1e-10.
	Gain float64 `json:"gain"`
}

// Runner runs trial batches on a shared step executor.
type Runner struct {
	exec    *executor.StepExecutor
	metrics *Metrics
	logger  *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor sets the step executor. Defaults to executor.New().
func WithExecutor(e *executor.StepExecutor) Option {
	return func(r *Runner) {
		if e != nil {
			r.exec = e
		}
	}
}

// WithMetrics records trial results to m.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger used for batch progress.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.exec == nil {
		r.exec = executor.New()
	}
	r.logger = r.logger.Named("simulation")
	return r
}

type trialResult struct {
	standard ChainResult
	voting   ChainResult
}

// Run executes p.Trials trials with at most p.Workers in flight (NumCPU when
// zero). The run ID comes from ctx, or a fresh UUID when ctx has none.
func (r *Runner) Run(ctx context.Context, p Params) (Report, error) {
	if err := p.Validate(); err != nil {
		return Report{}, err
	}
	runID := logging.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logging.WithRunID(ctx, runID)
	}
	workers := p.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	r.logger.Info("simulation started",
		zap.String("run.id", runID),
		zap.Int("trials", p.Trials),
		zap.Int("steps", p.Voting.Steps),
		zap.Int("k", p.Voting.K),
		zap.Int("workers", workers),
	)
	start := time.Now()

	results := make([]trialResult, p.Trials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < p.Trials; i++ {
		g.Go(func() error {
			res, err := r.runTrial(gctx, p, i)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rep := summarize(p, results)
	rep.RunID = runID
	rep.Duration = time.Since(start)

	r.logger.Info("simulation finished",
		zap.String("run.id", runID),
		zap.Float64("standard_rate", rep.StandardRate),
		zap.Float64("voting_rate", rep.VotingRate),
		zap.Float64("voting_predicted", rep.VotingPredicted),
		zap.Float64("avg_calls_per_step", rep.AvgCallsPerStep),
		zap.Duration("duration", rep.Duration),
	)
	return rep, nil
}

func (r *Runner) runTrial(ctx context.Context, p Params, i int) (trialResult, error) {
	if err := ctx.Err(); err != nil {
		return trialResult{}, err
	}
	start := time.Now()
	ctx = logging.WithTaskID(ctx, fmt.Sprintf("trial-%d", i))

	std := RunStandard(newTrialRNG(p.Seed, i, 0), p.Voting.Steps, p.Oracle.Accuracy)
	oracle := NewOracle(p.Oracle, newTrialRNG(p.Seed, i, 1))
	vote, err := RunVoting(ctx, r.exec, oracle, p.Voting)
	if err != nil {
		return trialResult{}, err
	}

	r.metrics.observe(AgentStandard, std)
	r.metrics.observe(AgentVoting, vote)
	if r.metrics != nil {
		r.metrics.TrialDuration.Observe(time.Since(start).Seconds())
	}
	return trialResult{standard: std, voting: vote}, nil
}

func summarize(p Params, results []trialResult) Report {
	acc := p.Oracle.Accuracy
	k := p.Voting.K
	steps := p.Voting.Steps

	rep := Report{
		Trials:   p.Trials,
		Steps:    steps,
		Accuracy: acc,
		K:        k,

		StandardTheoretical: math.Pow(acc, float64(steps)),
	}
	if acc > 0.5 {
		rep.VotingPredicted = planner.TaskSuccessProbability(planner.ExactHittingProbability(acc, k), steps)
		rep.VotingBound = planner.TaskSuccessProbability(planner.HittingProbability(acc, k), steps)
		rep.ExpectedCallsPerStep = planner.ExpectedSamplesPerStep(k, acc)
	}

	stepsRun := 0
	for _, res := range results {
		if res.standard.Success {
			rep.StandardSuccesses++
		}
		if res.voting.Success {
			rep.VotingSuccesses++
		}
		rep.TotalCalls += res.voting.Calls
		rep.ExhaustedSteps += res.voting.ExhaustedSteps
		rep.Rejections += res.voting.Rejections
		rep.OracleFailures += res.voting.OracleFailures
		stepsRun += res.voting.StepsRun
	}

	n := float64(p.Trials)
	rep.StandardRate = float64(rep.StandardSuccesses) / n
	rep.VotingRate = float64(rep.VotingSuccesses) / n
	rep.AvgCallsPerTrial = float64(rep.TotalCalls) / n
	if stepsRun > 0 {
		rep.AvgCallsPerStep = float64(rep.TotalCalls) / float64(stepsRun)
	}
	rep.Gain = rep.VotingRate / math.Max(rep.StandardRate, 1e-10)
	return rep
}

// DefaultVotingParams returns chain parameters with the permissive
// red-flag profile the synthetic oracle is built for.
func DefaultVotingParams(steps, k int) VotingParams {
	return VotingParams{
		Steps:       steps,
		K:           k,
		SampleCap:   100,
		ResampleCap: 50,
		RedFlag:     redflag.DefaultConfig(0),
	}
}
