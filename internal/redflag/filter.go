package redflag

import "github.com/fyrsmithlabs/maker/internal/candidate"

// Filter classifies candidates against an ordered rule list.
type Filter struct {
	rules []Rule
}

// NewFilter returns a filter running DefaultRules followed by extra.
func NewFilter(extra ...Rule) *Filter {
	rules := DefaultRules()
	rules = append(rules, extra...)
	return &Filter{rules: rules}
}

// NewFilterWithRules returns a filter running exactly the given rules in order.
func NewFilterWithRules(rules ...Rule) *Filter {
	return &Filter{rules: append([]Rule(nil), rules...)}
}

// Rules returns the rule names in evaluation order.
func (f *Filter) Rules() []string {
	names := make([]string, len(f.rules))
	for i, r := range f.rules {
		names[i] = r.Name()
	}
	return names
}

// Classify returns the verdict of the first rule that flags in, or an
// accepted verdict when none does.
func (f *Filter) Classify(in Input, cfg Config) Verdict {
	for _, r := range f.rules {
		if detail, flagged := r.Check(in, cfg); flagged {
			return Verdict{
				Accepted: false,
				Reason:   r.Reason(),
				Rule:     r.Name(),
				Detail:   detail,
			}
		}
	}
	return accepted()
}

// Classify runs f over a candidate.
func Classify[V comparable](f *Filter, c candidate.Candidate[V], cfg Config) Verdict {
	return f.Classify(Input{Length: c.Length, RawText: c.RawText}, cfg)
}
