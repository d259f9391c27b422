// Package voting implements first-to-ahead-by-k consensus for a single step.
//
// A Session counts votes for distinct candidate values and stops as soon as
// the leading value is k votes ahead of the runner-up (WON), or when the
// sample cap is reached without such a lead (EXHAUSTED). The lead behaves as
// a biased random walk: with per-sample accuracy p > 0.5 the correct value
// reaches a lead of k before any competitor with probability at least
// 1 - ((1-p)/p)^k, which is what the planner inverts to choose k.
//
// Ties for the lead are broken in favour of the value observed first, so a
// session fed the same observation order always yields the same Outcome.
//
// A Session is not safe for concurrent use. Parallel task drivers create one
// session per step.
package voting
