package redflag

import (
	"fmt"
	"strings"
)

// Rule is one red-flag predicate. Check returns a human-readable detail and
// true when the input must be rejected. Rules must not retain the input.
type Rule interface {
	Name() string
	Reason() Reason
	Check(in Input, cfg Config) (string, bool)
}

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		TooLongRule{},
		FormatRule{},
		HedgingRule{},
		SelfReferenceRule{},
		TooShortRule{},
		RepetitionRule{},
	}
}

// TooLongRule rejects candidates longer than MaxLengthRatio × ExpectedLength.
type TooLongRule struct{}

func (TooLongRule) Name() string   { return "length-ceiling" }
func (TooLongRule) Reason() Reason { return ReasonTooLong }

func (TooLongRule) Check(in Input, cfg Config) (string, bool) {
	if cfg.MaxLengthRatio <= 0 || cfg.ExpectedLength <= 0 {
		return "", false
	}
	limit := cfg.MaxLengthRatio * float64(cfg.ExpectedLength)
	if float64(in.Length) > limit {
		return fmt.Sprintf("length %d exceeds %.1f (%.2fx of %d)", in.Length, limit, cfg.MaxLengthRatio, cfg.ExpectedLength), true
	}
	return "", false
}

// FormatRule rejects candidates that do not parse as RequiredFormat.
type FormatRule struct{}

func (FormatRule) Name() string   { return "format" }
func (FormatRule) Reason() Reason { return ReasonMalformedFormat }

func (FormatRule) Check(in Input, cfg Config) (string, bool) {
	if cfg.RequiredFormat == FormatNone {
		return "", false
	}
	if err := checkFormat(in.RawText, cfg.RequiredFormat, cfg.RequiredFields); err != nil {
		return err.Error(), true
	}
	return "", false
}

// HedgingRule rejects candidates containing low-confidence language.
type HedgingRule struct{}

func (HedgingRule) Name() string   { return "hedging" }
func (HedgingRule) Reason() Reason { return ReasonHedging }

func (HedgingRule) Check(in Input, cfg Config) (string, bool) {
	return containsAny(in.RawText, cfg.HedgePatterns)
}

// SelfReferenceRule rejects candidates that talk about themselves instead of answering.
type SelfReferenceRule struct{}

func (SelfReferenceRule) Name() string   { return "self-reference" }
func (SelfReferenceRule) Reason() Reason { return ReasonSelfReference }

func (SelfReferenceRule) Check(in Input, cfg Config) (string, bool) {
	return containsAny(in.RawText, cfg.SelfReferencePatterns)
}

// TooShortRule rejects candidates shorter than MinLength.
type TooShortRule struct{}

func (TooShortRule) Name() string   { return "length-floor" }
func (TooShortRule) Reason() Reason { return ReasonTooShort }

func (TooShortRule) Check(in Input, cfg Config) (string, bool) {
	if cfg.MinLength <= 0 || in.Length >= cfg.MinLength {
		return "", false
	}
	return fmt.Sprintf("length %d below minimum %d", in.Length, cfg.MinLength), true
}

// minRepetitionWords is the shortest text the repetition rule inspects.
const minRepetitionWords = 20

// RepetitionRule rejects looping output, measured as the share of repeated word trigrams.
type RepetitionRule struct{}

func (RepetitionRule) Name() string   { return "repetition" }
func (RepetitionRule) Reason() Reason { return ReasonRepetitive }

func (RepetitionRule) Check(in Input, cfg Config) (string, bool) {
	if cfg.RepetitionThreshold <= 0 {
		return "", false
	}
	repeated, ok := repeatedTrigramRatio(in.RawText)
	if !ok || repeated <= cfg.RepetitionThreshold {
		return "", false
	}
	return fmt.Sprintf("%.1f%% repeated trigrams", repeated*100), true
}

// repeatedTrigramRatio returns 1 - unique/total over word trigrams. The bool
// is false when the text is too short to judge.
func repeatedTrigramRatio(text string) (float64, bool) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < minRepetitionWords {
		return 0, false
	}
	total := len(words) - 2
	seen := make(map[string]struct{}, total)
	for i := 0; i < total; i++ {
		seen[words[i]+" "+words[i+1]+" "+words[i+2]] = struct{}{}
	}
	return 1 - float64(len(seen))/float64(total), true
}

func containsAny(text string, patterns []string) (string, bool) {
	if len(patterns) == 0 || text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return fmt.Sprintf("matched %q", p), true
		}
	}
	return "", false
}
