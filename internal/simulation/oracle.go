package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/fyrsmithlabs/maker/internal/candidate"
	"github.com/fyrsmithlabs/maker/internal/executor"
)

// CorrectValue is the answer the synthetic oracle treats as right on every step.
const CorrectValue = 0

// ErrSimulatedFailure is the cause of every injected oracle failure.
var ErrSimulatedFailure = errors.New("simulated oracle failure")

// OracleConfig describes the synthetic oracle.
type OracleConfig struct {
	// Accuracy is the probability a draw is CorrectValue.
	Accuracy float64 `json:"accuracy"`
	// WrongValues is how many distinct wrong answers exist. 1 is the worst
	// case: every error votes for the same competitor.
	WrongValues int `json:"wrong_values"`
	// RedFlagRate is the probability a draw comes back hedged.
	RedFlagRate float64 `json:"red_flag_rate"`
	// FailureRate is the probability a draw fails outright.
	FailureRate float64 `json:"failure_rate"`
}

// Validate checks the probabilities and the wrong-answer count.
func (c OracleConfig) Validate() error {
	if c.Accuracy <= 0 || c.Accuracy > 1 {
		return fmt.Errorf("accuracy must be in (0, 1], got %f", c.Accuracy)
	}
	if c.WrongValues < 1 {
		return fmt.Errorf("wrong_values must be >= 1, got %d", c.WrongValues)
	}
	if c.RedFlagRate < 0 || c.RedFlagRate >= 1 {
		return fmt.Errorf("red_flag_rate must be in [0, 1), got %f", c.RedFlagRate)
	}
	if c.FailureRate < 0 || c.FailureRate >= 1 {
		return fmt.Errorf("failure_rate must be in [0, 1), got %f", c.FailureRate)
	}
	return nil
}

// Oracle is a seeded synthetic executor.Oracle[int]. It is not safe for
// concurrent use; each trial owns one.
type Oracle struct {
	cfg OracleConfig
	rng *rand.Rand
}

var _ executor.Oracle[int] = (*Oracle)(nil)

// NewOracle creates an oracle drawing from rng.
func NewOracle(cfg OracleConfig, rng *rand.Rand) *Oracle {
	return &Oracle{cfg: cfg, rng: rng}
}

// Sample draws one candidate. Failures are decided first, then the value,
// then whether the text is hedged.
func (o *Oracle) Sample(ctx context.Context) (candidate.Candidate[int], error) {
	if err := ctx.Err(); err != nil {
		return candidate.Candidate[int]{}, err
	}
	if o.cfg.FailureRate > 0 && o.rng.Float64() < o.cfg.FailureRate {
		return candidate.Candidate[int]{}, executor.OracleFailure(ErrSimulatedFailure)
	}

	value := CorrectValue
	if o.rng.Float64() >= o.cfg.Accuracy {
		value = CorrectValue + 1 + o.rng.IntN(o.cfg.WrongValues)
	}

	text := "move " + strconv.Itoa(value)
	if o.cfg.RedFlagRate > 0 && o.rng.Float64() < o.cfg.RedFlagRate {
		text = "I'm not sure, but maybe " + text
	}
	return candidate.New(value, text), nil
}

// newTrialRNG returns the stream for one trial and chain. Two chains per
// trial keep the standard and voting runs independent.
func newTrialRNG(seed uint64, trial int, chain uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(trial)<<1|chain))
}
