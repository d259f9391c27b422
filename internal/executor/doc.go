// Package executor runs one step: it draws candidates from a sampling oracle,
// discards red-flagged ones, and feeds the rest into a voting session until
// the session is decided or a cap is reached.
//
// Two caps bound the cost of a step. SampleCap limits the accepted votes a
// session may count; ResampleCap limits the draws that produced no vote
// (red-flagged candidates and oracle failures). Reaching ResampleCap before
// any vote is an ErrOracleExhausted failure; reaching it after at least one
// vote ends the step as an exhausted outcome with the current leader.
//
// The executor holds no per-step state, so one StepExecutor may run many
// steps concurrently; each RunStep call owns its own session.
package executor
