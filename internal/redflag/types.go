package redflag

import (
	"fmt"
	"strings"
)

// Reason identifies why a candidate was rejected.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonTooLong         Reason = "too_long"
	ReasonMalformedFormat Reason = "malformed_format"
	ReasonHedging         Reason = "hedging"
	ReasonSelfReference   Reason = "self_reference"
	ReasonTooShort        Reason = "too_short"
	ReasonRepetitive      Reason = "repetitive"
	ReasonSecretLeak      Reason = "secret_leak"
)

// Format is the structural shape a candidate's raw text must have.
type Format string

const (
	FormatNone       Format = ""
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatCode       Format = "code"
	FormatSingleLine Format = "single_line"
)

// Valid reports whether f is a known format tag.
func (f Format) Valid() bool {
	switch f {
	case FormatNone, FormatJSON, FormatYAML, FormatCode, FormatSingleLine:
		return true
	}
	return false
}

// DefaultMaxLengthRatio is the length multiple used by DefaultConfig.
const DefaultMaxLengthRatio = 2.0

// DefaultHedgePatterns are markers of low-confidence answers. Each optional
// word is spelled out since matching is by plain substring.
var DefaultHedgePatterns = []string{
	// i'm / i am not [entirely|completely|totally] sure / certain
	"i'm not sure",
	"i'm not certain",
	"i'm not entirely sure",
	"i'm not entirely certain",
	"i'm not completely sure",
	"i'm not completely certain",
	"i'm not totally sure",
	"i'm not totally certain",
	"i am not sure",
	"i am not certain",
	"i am not entirely sure",
	"i am not entirely certain",
	"i am not completely sure",
	"i am not completely certain",
	"i am not totally sure",
	"i am not totally certain",
	// i think [it] might
	"i think might",
	"i think it might",
	// i'm / i am [just] guessing
	"i'm guessing",
	"i'm just guessing",
	"i am guessing",
	"i am just guessing",
	// this could / might / may be wrong
	"this could be wrong",
	"this might be wrong",
	"this may be wrong",
	// i don't [really] know
	"i don't know",
	"i don't really know",
	"i'm uncertain",
	"hard to say",
}

// DefaultSelfReferencePatterns are markers of an output that went off the rails.
var DefaultSelfReferencePatterns = []string{
	"as an ai",
	"as a language model",
	// i cannot / can't / am unable to [actually|really] do / perform / execute
	"i cannot do",
	"i cannot perform",
	"i cannot execute",
	"i cannot actually do",
	"i cannot actually perform",
	"i cannot actually execute",
	"i cannot really do",
	"i cannot really perform",
	"i cannot really execute",
	"i can't do",
	"i can't perform",
	"i can't execute",
	"i can't actually do",
	"i can't actually perform",
	"i can't actually execute",
	"i can't really do",
	"i can't really perform",
	"i can't really execute",
	"i am unable to do",
	"i am unable to perform",
	"i am unable to execute",
	"i am unable to actually do",
	"i am unable to actually perform",
	"i am unable to actually execute",
	"i am unable to really do",
	"i am unable to really perform",
	"i am unable to really execute",
	// let me / allow me to think / consider / reflect
	"let me think",
	"let me consider",
	"let me reflect",
	"allow me to think",
	"allow me to consider",
	"allow me to reflect",
	// let me / i need to reconsider / rethink
	"let me reconsider",
	"let me rethink",
	"i need to reconsider",
	"i need to rethink",
}

// Config holds the thresholds for one step class. Zero values disable the
// corresponding rule.
type Config struct {
	ExpectedLength        int      `json:"expected_length" koanf:"expected_length" yaml:"expected_length"`
	MaxLengthRatio        float64  `json:"max_length_ratio" koanf:"max_length_ratio" yaml:"max_length_ratio"`
	RequiredFormat        Format   `json:"required_format" koanf:"required_format" yaml:"required_format"`
	RequiredFields        []string `json:"required_fields,omitempty" koanf:"required_fields" yaml:"required_fields"`
	HedgePatterns         []string `json:"hedge_patterns,omitempty" koanf:"hedge_patterns" yaml:"hedge_patterns"`
	SelfReferencePatterns []string `json:"self_reference_patterns,omitempty" koanf:"self_reference_patterns" yaml:"self_reference_patterns"`
	MinLength             int      `json:"min_length,omitempty" koanf:"min_length" yaml:"min_length"`
	RepetitionThreshold   float64  `json:"repetition_threshold,omitempty" koanf:"repetition_threshold" yaml:"repetition_threshold"`
}

// DefaultConfig returns a config for candidates of the given expected length
// with the default ratio and pattern lists. The slices are copies.
func DefaultConfig(expectedLength int) Config {
	return Config{
		ExpectedLength:        expectedLength,
		MaxLengthRatio:        DefaultMaxLengthRatio,
		HedgePatterns:         append([]string(nil), DefaultHedgePatterns...),
		SelfReferencePatterns: append([]string(nil), DefaultSelfReferencePatterns...),
	}
}

// Validate checks the config for values no rule can interpret.
func (c Config) Validate() error {
	if c.ExpectedLength < 0 {
		return fmt.Errorf("expected_length must be >= 0, got %d", c.ExpectedLength)
	}
	if c.MaxLengthRatio < 0 {
		return fmt.Errorf("max_length_ratio must be >= 0, got %f", c.MaxLengthRatio)
	}
	if !c.RequiredFormat.Valid() {
		return fmt.Errorf("unknown required_format %q", c.RequiredFormat)
	}
	if len(c.RequiredFields) > 0 && c.RequiredFormat != FormatJSON && c.RequiredFormat != FormatYAML {
		return fmt.Errorf("required_fields needs a json or yaml required_format")
	}
	if c.MinLength < 0 {
		return fmt.Errorf("min_length must be >= 0, got %d", c.MinLength)
	}
	if c.RepetitionThreshold < 0 || c.RepetitionThreshold >= 1 {
		return fmt.Errorf("repetition_threshold must be in [0, 1), got %f", c.RepetitionThreshold)
	}
	for _, p := range c.HedgePatterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("hedge_patterns contains an empty pattern")
		}
	}
	for _, p := range c.SelfReferencePatterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("self_reference_patterns contains an empty pattern")
		}
	}
	return nil
}

// Input is the part of a candidate the rules look at.
type Input struct {
	Length  int
	RawText string
}

// Verdict is the result of classifying one candidate.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Rejected is the inverse of Accepted.
func (v Verdict) Rejected() bool {
	return !v.Accepted
}

// String renders the verdict for logs.
func (v Verdict) String() string {
	if v.Accepted {
		return "accepted"
	}
	if v.Detail == "" {
		return "rejected(" + string(v.Reason) + ")"
	}
	return "rejected(" + string(v.Reason) + "): " + v.Detail
}

func accepted() Verdict {
	return Verdict{Accepted: true}
}
