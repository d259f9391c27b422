package planner

import "math"

// MinMargin returns the UnionBound margin for the given inputs. It assumes
// validated inputs.
func MinMargin(steps int, p, t float64) int {
	arg := float64(steps) * (1 - t) / t
	if arg <= 1 {
		return 1
	}
	k := math.Ceil(math.Log(arg) / (2 * math.Log(p/(1-p))))
	return clampMargin(k)
}

// ExactMinMargin returns the smallest k with (1-r^k)^s >= t, r=(1-p)/p.
func ExactMinMargin(steps int, p, t float64) int {
	// Per-step failure allowance 1 - t^(1/s), computed without cancellation.
	eps := -math.Expm1(math.Log(t) / float64(steps))
	if eps >= 1 {
		return 1
	}
	k := math.Ceil(math.Log(eps) / math.Log((1-p)/p))
	return clampMargin(k)
}

func clampMargin(k float64) int {
	if math.IsNaN(k) || k < 1 {
		return 1
	}
	if k > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(k)
}

// ExpectedSamplesPerStep is k/(2p-1), the mean number of accepted samples
// before the lead reaches k.
func ExpectedSamplesPerStep(k int, p float64) float64 {
	return float64(k) / (2*p - 1)
}

// HittingProbability is the planning bound 1-((1-p)/p)^k on the chance that
// the correct value reaches a lead of k first.
func HittingProbability(p float64, k int) float64 {
	return 1 - math.Pow((1-p)/p, float64(k))
}

// ExactHittingProbability is the two-outcome gambler's ruin probability
// 1/(1+((1-p)/p)^k). It is never below HittingProbability.
func ExactHittingProbability(p float64, k int) float64 {
	return 1 / (1 + math.Pow((1-p)/p, float64(k)))
}

// TaskSuccessProbability is perStep^steps, computed in log space.
func TaskSuccessProbability(perStep float64, steps int) float64 {
	if perStep <= 0 {
		return 0
	}
	return math.Exp(float64(steps) * math.Log(perStep))
}
