package secrets

import (
	"testing"

	"github.com/fyrsmithlabs/maker/internal/candidate"
	"github.com/fyrsmithlabs/maker/internal/redflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	findings []Finding
	calls    int
}

func (f *fakeScanner) Detect(string) []Finding {
	f.calls++
	return f.findings
}

func TestRule_Check(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		findings   []Finding
		wantFlag   bool
		wantDetail string
	}{
		{name: "clean", text: "move disk 1 to C"},
		{
			name:       "one finding",
			text:       "token ghp_xxx",
			findings:   []Finding{{RuleID: "github-pat", Line: 1}},
			wantFlag:   true,
			wantDetail: "contains github-pat on line 1",
		},
		{
			name: "several findings",
			text: "two keys",
			findings: []Finding{
				{RuleID: "aws-access-token", Line: 2},
				{RuleID: "github-pat", Line: 3},
			},
			wantFlag:   true,
			wantDetail: "contains aws-access-token on line 2 and 1 more",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRule(&fakeScanner{findings: tt.findings})
			detail, flagged := r.Check(redflag.Input{Length: len(tt.text), RawText: tt.text}, redflag.Config{})
			assert.Equal(t, tt.wantFlag, flagged)
			assert.Equal(t, tt.wantDetail, detail)
		})
	}
}

func TestRule_SkipsEmptyText(t *testing.T) {
	s := &fakeScanner{findings: []Finding{{RuleID: "x"}}}
	_, flagged := NewRule(s).Check(redflag.Input{}, redflag.Config{})
	assert.False(t, flagged)
	assert.Zero(t, s.calls)
}

func TestRule_InFilter(t *testing.T) {
	s := &fakeScanner{findings: []Finding{{RuleID: "private-key", Line: 1}}}
	f := redflag.NewFilter(NewRule(s))
	require.Contains(t, f.Rules(), "secret-leak")

	v := redflag.Classify(f, candidate.FromText("here is the key you asked for", nil), redflag.DefaultConfig(0))
	assert.False(t, v.Accepted)
	assert.Equal(t, redflag.ReasonSecretLeak, v.Reason)
	assert.Equal(t, "secret-leak", v.Rule)
}

func TestRule_BuiltInRulesRunFirst(t *testing.T) {
	s := &fakeScanner{findings: []Finding{{RuleID: "private-key", Line: 1}}}
	f := redflag.NewFilter(NewRule(s))

	v := redflag.Classify(f, candidate.FromText("I'm not sure, maybe this key", nil), redflag.DefaultConfig(0))
	assert.Equal(t, redflag.ReasonHedging, v.Reason)
	assert.Zero(t, s.calls)
}
