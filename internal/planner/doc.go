// Package planner chooses the voting margin k for a task and estimates what it costs.
//
// Given s steps, a per-step accuracy estimate p and a target end-to-end
// success rate t, the default UnionBound strategy spreads a failure budget of
// (1-t)/s over the steps and picks
//
//	k = ceil( ln(s(1-t)/t) / (2 ln(p/(1-p))) ), at least 1
//
// The expected number of accepted samples per step is k/(2p-1), the mean
// stopping time of the lead random walk, and the expected task cost is s
// times that. The Exact strategy instead inverts (1-((1-p)/p)^k)^s >= t.
//
// All functions are pure: the same inputs always yield the same Plan, and a
// Planner may be shared by any number of goroutines.
package planner
