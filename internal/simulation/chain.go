package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/fyrsmithlabs/maker/internal/executor"
	"github.com/fyrsmithlabs/maker/internal/logging"
	"github.com/fyrsmithlabs/maker/internal/redflag"
	"github.com/fyrsmithlabs/maker/internal/voting"
)

// ChainResult is the result of running one task.
type ChainResult struct {
	Success bool `json:"success"`
	// FailedStep is the 1-based step that failed, 0 on success.
	FailedStep     int `json:"failed_step,omitempty"`
	StepsRun       int `json:"steps_run"`
	Calls          int `json:"calls"`
	ExhaustedSteps int `json:"exhausted_steps,omitempty"`
	Rejections     int `json:"rejections,omitempty"`
	OracleFailures int `json:"oracle_failures,omitempty"`
}

// RunStandard runs a task without voting: one draw per step, the first wrong
// draw fails the task.
func RunStandard(rng *rand.Rand, steps int, accuracy float64) ChainResult {
	for i := 1; i <= steps; i++ {
		if rng.Float64() >= accuracy {
			return ChainResult{FailedStep: i, StepsRun: i, Calls: i}
		}
	}
	return ChainResult{Success: true, StepsRun: steps, Calls: steps}
}

// VotingParams configures a voting chain.
type VotingParams struct {
	Steps       int            `json:"steps"`
	K           int            `json:"k"`
	SampleCap   int            `json:"sample_cap"`
	ResampleCap int            `json:"resample_cap"`
	RedFlag     redflag.Config `json:"red_flag"`
}

// StepConfig is the executor config every step of the chain uses.
func (p VotingParams) StepConfig() executor.StepConfig {
	return executor.StepConfig{
		RedFlag:     p.RedFlag,
		K:           p.K,
		SampleCap:   p.SampleCap,
		ResampleCap: p.ResampleCap,
	}
}

// RunVoting runs a task where every step is decided by vote. A step fails
// the task when its outcome is not CorrectValue or when the oracle is
// exhausted; an exhausted session whose leader is correct is accepted.
// Errors are returned only for cancellation and misuse.
func RunVoting(ctx context.Context, e *executor.StepExecutor, o executor.Oracle[int], p VotingParams) (ChainResult, error) {
	if p.Steps < 1 {
		return ChainResult{}, fmt.Errorf("steps must be >= 1, got %d", p.Steps)
	}
	cfg := p.StepConfig()

	var res ChainResult
	for i := 0; i < p.Steps; i++ {
		step, err := executor.RunStepDetailed(logging.WithStepIndex(ctx, i), e, o, cfg)
		res.StepsRun++
		res.Calls += step.Draws
		res.Rejections += step.Rejected()
		res.OracleFailures += step.OracleFailures

		if err != nil {
			if errors.Is(err, executor.ErrOracleExhausted) {
				res.FailedStep = i + 1
				return res, nil
			}
			return res, err
		}
		if step.Outcome.Kind == voting.OutcomeExhausted {
			res.ExhaustedSteps++
		}
		if step.Outcome.Value != CorrectValue {
			res.FailedStep = i + 1
			return res, nil
		}
	}
	res.Success = true
	return res, nil
}
