package executor

import (
	"fmt"

	"github.com/fyrsmithlabs/maker/internal/redflag"
)

// StepConfig is everything RunStep needs besides the oracle.
type StepConfig struct {
	RedFlag     redflag.Config `json:"red_flag" koanf:"red_flag"`
	K           int            `json:"k" koanf:"k"`
	SampleCap   int            `json:"sample_cap" koanf:"sample_cap"`
	ResampleCap int            `json:"resample_cap" koanf:"resample_cap"`
}

// Validate checks the margin and both caps.
func (c StepConfig) Validate() error {
	if c.K < 1 {
		return fmt.Errorf("%w: k must be >= 1, got %d", ErrInvalidStepConfig, c.K)
	}
	if c.SampleCap < 1 {
		return fmt.Errorf("%w: sample_cap must be >= 1, got %d", ErrInvalidStepConfig, c.SampleCap)
	}
	if c.ResampleCap < 1 {
		return fmt.Errorf("%w: resample_cap must be >= 1, got %d", ErrInvalidStepConfig, c.ResampleCap)
	}
	if err := c.RedFlag.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStepConfig, err)
	}
	return nil
}
