package planner

import (
	"fmt"
)

// Strategy selects the margin formula.
type Strategy string

const (
	// StrategyUnionBound spreads (1-t)/s over the steps. This is the default.
	StrategyUnionBound Strategy = "union_bound"
	// StrategyExact inverts the per-step hitting bound compounded over s steps.
	StrategyExact Strategy = "exact"
)

// ParseStrategy maps a config string to a Strategy. Empty means the default.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyUnionBound:
		return StrategyUnionBound, nil
	case StrategyExact:
		return StrategyExact, nil
	}
	return "", fmt.Errorf("unknown planner strategy %q", s)
}

// Plan is the immutable result of planning a task.
type Plan struct {
	Steps           int      `json:"steps"`
	PerStepAccuracy float64  `json:"per_step_accuracy"`
	TargetSuccess   float64  `json:"target_success"`
	Strategy        Strategy `json:"strategy"`

	K                      int     `json:"k"`
	ExpectedSamplesPerStep float64 `json:"expected_samples_per_step"`
	ExpectedTotalCost      float64 `json:"expected_total_cost"`

	// PerStepWinBound is HittingProbability(p, K).
	PerStepWinBound float64 `json:"per_step_win_bound"`
	// TaskSuccessBound is PerStepWinBound compounded over Steps.
	TaskSuccessBound float64 `json:"task_success_bound"`
}

// Cost scales the sample-count cost by the caller's per-sample cost.
func (p Plan) Cost(costPerSample float64) float64 {
	return p.ExpectedTotalCost * costPerSample
}

// Planner computes Plans with a fixed strategy.
type Planner struct {
	strategy Strategy
}

// Option configures a Planner.
type Option func(*Planner)

// WithStrategy sets the margin formula.
func WithStrategy(s Strategy) Option {
	return func(p *Planner) {
		p.strategy = s
	}
}

// New creates a planner. The default strategy is StrategyUnionBound.
func New(opts ...Option) *Planner {
	p := &Planner{strategy: StrategyUnionBound}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Strategy returns the planner's margin formula.
func (pl *Planner) Strategy() Strategy {
	return pl.strategy
}

// Plan computes the minimum margin and expected cost for s steps with
// per-step accuracy p and target success t.
func (pl *Planner) Plan(steps int, p, t float64) (Plan, error) {
	if err := validate(steps, p, t); err != nil {
		return Plan{}, err
	}

	var k int
	switch pl.strategy {
	case StrategyUnionBound:
		k = MinMargin(steps, p, t)
	case StrategyExact:
		k = ExactMinMargin(steps, p, t)
	default:
		return Plan{}, fmt.Errorf("unknown planner strategy %q", pl.strategy)
	}

	return newPlan(pl.strategy, steps, p, t, k), nil
}

// ForMargin builds the cost estimate for a caller-chosen k, for example after
// the driver escalates k on an exhausted step.
func (pl *Planner) ForMargin(steps int, p float64, k int) (Plan, error) {
	if steps < 1 {
		return Plan{}, &ParamError{Param: "steps", Value: float64(steps), Reason: "must be >= 1"}
	}
	if err := validateAccuracy(p); err != nil {
		return Plan{}, err
	}
	if k < 1 {
		return Plan{}, &ParamError{Param: "k", Value: float64(k), Reason: "must be >= 1"}
	}
	return newPlan(pl.strategy, steps, p, 0, k), nil
}

func newPlan(strategy Strategy, steps int, p, t float64, k int) Plan {
	perStep := ExpectedSamplesPerStep(k, p)
	win := HittingProbability(p, k)
	return Plan{
		Steps:                  steps,
		PerStepAccuracy:        p,
		TargetSuccess:          t,
		Strategy:               strategy,
		K:                      k,
		ExpectedSamplesPerStep: perStep,
		ExpectedTotalCost:      float64(steps) * perStep,
		PerStepWinBound:        win,
		TaskSuccessBound:       TaskSuccessProbability(win, steps),
	}
}

// Compute plans with the default strategy.
func Compute(steps int, p, t float64) (Plan, error) {
	return New().Plan(steps, p, t)
}
