// Package redflag rejects low-quality candidates before they are counted as votes.
//
// A red-flagged candidate is discarded and the caller draws again. Discarding
// suspicious samples raises the effective per-step accuracy p that the voting
// margin is planned against, because confused outputs tend to be long,
// malformed, hedged or self-referential.
//
// # Rules
//
// A Filter evaluates its rules in a fixed order and reports the first match:
//
//  1. too_long: Length > MaxLengthRatio × ExpectedLength
//  2. malformed_format: the text does not conform to RequiredFormat
//  3. hedging: the text contains a HedgePatterns entry (case-insensitive)
//  4. self_reference: the text contains a SelfReferencePatterns entry (case-insensitive)
//
// Two opt-in rules follow them: too_short (MinLength) and repetitive
// (RepetitionThreshold). Each rule is an independent Rule value so callers can
// append their own with NewFilter; internal/secrets provides secret_leak that way.
//
// # Usage
//
//	cfg := redflag.DefaultConfig(120)
//	cfg.RequiredFormat = redflag.FormatJSON
//	cfg.RequiredFields = []string{"action"}
//
//	f := redflag.NewFilter()
//	v := redflag.Classify(f, cand, cfg)
//	if v.Rejected() {
//	    // resample
//	}
//
// The filter holds no mutable state and never retains candidates, so one
// Filter may serve any number of concurrent steps.
package redflag
