package secrets

import (
	"fmt"

	"github.com/fyrsmithlabs/maker/internal/redflag"
)

// Scanner finds secrets in text. *Detector implements it.
type Scanner interface {
	Detect(content string) []Finding
}

// Rule is a redflag.Rule rejecting any candidate with at least one finding.
// It ignores the red-flag Config.
type Rule struct {
	scanner Scanner
}

// NewRule wraps s as a red-flag rule.
func NewRule(s Scanner) *Rule {
	return &Rule{scanner: s}
}

func (r *Rule) Name() string           { return "secret-leak" }
func (r *Rule) Reason() redflag.Reason { return redflag.ReasonSecretLeak }

func (r *Rule) Check(in redflag.Input, _ redflag.Config) (string, bool) {
	if in.RawText == "" {
		return "", false
	}
	findings := r.scanner.Detect(in.RawText)
	if len(findings) == 0 {
		return "", false
	}
	f := findings[0]
	if len(findings) == 1 {
		return fmt.Sprintf("contains %s on line %d", f.RuleID, f.Line), true
	}
	return fmt.Sprintf("contains %s on line %d and %d more", f.RuleID, f.Line, len(findings)-1), true
}

var _ redflag.Rule = (*Rule)(nil)
