// Package simulation measures the voting layer against a synthetic oracle.
//
// One trial runs a task of Steps steps twice: once as a standard chain where
// the first wrong draw fails the task, and once as a voting chain where every
// step goes through the step executor. RunTrials runs independent trials
// concurrently and reports observed success rates next to the planner's
// predictions.
//
// Trials are deterministic for a given seed and independent of the worker
// count: trial i draws from its own PCG stream.
package simulation
