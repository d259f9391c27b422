package planner

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_UnionBoundMargins(t *testing.T) {
	tests := []struct {
		name  string
		steps int
		p, t  float64
		wantK int
	}{
		// Worked examples elsewhere quote k=3, 5, 4 for the first three rows;
		// those do not follow from this formula, which is what is asserted.
		// ln(100*0.01/0.99) is barely above zero, so one round suffices.
		{"100 steps p=0.8", 100, 0.8, 0.99, 1},
		// ln(10101.01)/(2 ln 4) = 3.33
		{"1M steps p=0.8", 1_000_000, 0.8, 0.99, 4},
		// ln(10101.01)/(2 ln 9) = 2.10
		{"1M steps p=0.9", 1_000_000, 0.9, 0.99, 3},
		// ln(1e6*0.1/0.9)/(2 ln 1.5) = 14.3
		{"1M steps p=0.6 t=0.9", 1_000_000, 0.6, 0.9, 15},
		// s(1-t)/t = 1 clamps to k=1
		{"argument exactly one", 1, 0.7, 0.5, 1},
		{"argument below one", 10, 0.7, 0.95, 1},
	}

	pl := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := pl.Plan(tt.steps, tt.p, tt.t)
			require.NoError(t, err)
			assert.Equal(t, tt.wantK, plan.K)
			assert.Equal(t, StrategyUnionBound, plan.Strategy)
			assert.GreaterOrEqual(t, plan.K, 1)
		})
	}
}

func TestPlan_ExactMargins(t *testing.T) {
	pl := New(WithStrategy(StrategyExact))

	plan, err := pl.Plan(100, 0.8, 0.99)
	require.NoError(t, err)
	// ln(1-0.99^(1/100))/ln(0.25) = 6.64
	assert.Equal(t, 7, plan.K)

	plan, err = pl.Plan(1_000_000, 0.8, 0.99)
	require.NoError(t, err)
	// ln(1-0.99^(1e-6))/ln(0.25) = 13.28
	assert.Equal(t, 14, plan.K)
	assert.GreaterOrEqual(t, plan.TaskSuccessBound, 0.99)
}

func TestPlan_ExpectedCost(t *testing.T) {
	plan, err := New().ForMargin(1_000_000, 0.8, 5)
	require.NoError(t, err)

	assert.InDelta(t, 8.3333, plan.ExpectedSamplesPerStep, 1e-3)
	assert.InDelta(t, 8_333_333.33, plan.ExpectedTotalCost, 1)
	assert.InDelta(t, 2*8_333_333.33, plan.Cost(2), 2)

	assert.InDelta(t, 5/0.6, ExpectedSamplesPerStep(5, 0.8), 1e-12)
}

func TestPlan_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		steps int
		p, t  float64
		param string
	}{
		{"p at one half", 100, 0.5, 0.99, "per_step_accuracy"},
		{"p below one half", 100, 0.3, 0.99, "per_step_accuracy"},
		{"p of one", 100, 1, 0.99, "per_step_accuracy"},
		{"p NaN", 100, math.NaN(), 0.99, "per_step_accuracy"},
		{"t of zero", 100, 0.8, 0, "target_success"},
		{"t of one", 100, 0.8, 1, "target_success"},
		{"t above one", 100, 0.8, 1.2, "target_success"},
		{"zero steps", 0, 0.8, 0.99, "steps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.steps, tt.p, tt.t)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParameter)

			var pe *ParamError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.param, pe.Param)
		})
	}
}

func TestPlan_Idempotent(t *testing.T) {
	pl := New()
	first, err := pl.Plan(12345, 0.77, 0.95)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := pl.Plan(12345, 0.77, 0.95)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPlan_MarginGrowsWithSteps(t *testing.T) {
	rows, err := New().Table(DefaultTableSteps, 0.8, 0.99)
	require.NoError(t, err)
	require.Len(t, rows, len(DefaultTableSteps))
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i].Plan.K, rows[i-1].Plan.K)
		assert.Equal(t, DefaultTableSteps[i], rows[i].Steps)
	}
}

func TestTable_PropagatesErrors(t *testing.T) {
	_, err := New().Table([]int{10, 0}, 0.8, 0.99)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestForMargin_Invalid(t *testing.T) {
	pl := New()
	_, err := pl.ForMargin(10, 0.8, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = pl.ForMargin(10, 0.5, 3)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = pl.ForMargin(0, 0.8, 3)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestHittingProbability(t *testing.T) {
	assert.InDelta(t, 0.75, HittingProbability(0.8, 1), 1e-12)
	assert.InDelta(t, 1-1.0/1024, HittingProbability(0.8, 5), 1e-12)
	assert.InDelta(t, 0.8, ExactHittingProbability(0.8, 1), 1e-12)

	for _, k := range []int{1, 2, 3, 5, 7} {
		for _, p := range []float64{0.55, 0.7, 0.9} {
			assert.GreaterOrEqual(t, ExactHittingProbability(p, k), HittingProbability(p, k))
		}
	}
}

func TestTaskSuccessProbability(t *testing.T) {
	assert.InDelta(t, math.Pow(0.8, 100), TaskSuccessProbability(0.8, 100), 1e-15)
	assert.Equal(t, 0.0, TaskSuccessProbability(0, 10))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyUnionBound, s)

	s, err = ParseStrategy("exact")
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, s)

	_, err = ParseStrategy("magic")
	assert.Error(t, err)

	_, err = New(WithStrategy("magic")).Plan(10, 0.8, 0.9)
	assert.Error(t, err)
}
