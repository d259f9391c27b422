package redflag

import (
	"strings"
	"testing"

	"github.com/fyrsmithlabs/maker/internal/candidate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Classify(t *testing.T) {
	base := DefaultConfig(10)

	tests := []struct {
		name   string
		in     Input
		cfg    func(Config) Config
		want   Reason
		accept bool
	}{
		{
			name:   "plain answer accepted",
			in:     Input{Length: 10, RawText: "move disk 1 to C"},
			accept: true,
		},
		{
			name: "three times expected length is too long",
			in:   Input{Length: 30, RawText: "move disk 1 to C"},
			want: ReasonTooLong,
		},
		{
			name:   "exactly at the ratio is accepted",
			in:     Input{Length: 20, RawText: "move disk 1 to C"},
			accept: true,
		},
		{
			name: "self reference is case insensitive",
			in:   Input{Length: 10, RawText: "As An AI, I would move disk 1"},
			want: ReasonSelfReference,
		},
		{
			name: "hedging",
			in:   Input{Length: 10, RawText: "I'm not sure, but disk 1 to C"},
			want: ReasonHedging,
		},
		{
			name: "too long wins over self reference",
			in:   Input{Length: 30, RawText: "as an ai I think disk 1 to C"},
			want: ReasonTooLong,
		},
		{
			name: "format wins over hedging",
			in:   Input{Length: 10, RawText: "hard to say {"},
			cfg: func(c Config) Config {
				c.RequiredFormat = FormatJSON
				return c
			},
			want: ReasonMalformedFormat,
		},
		{
			name: "hedging wins over self reference",
			in:   Input{Length: 10, RawText: "as an ai it is hard to say"},
			want: ReasonHedging,
		},
		{
			name: "ratio zero disables length ceiling",
			in:   Input{Length: 1000, RawText: "ok"},
			cfg: func(c Config) Config {
				c.MaxLengthRatio = 0
				return c
			},
			accept: true,
		},
		{
			name: "min length",
			in:   Input{Length: 2, RawText: "ok"},
			cfg: func(c Config) Config {
				c.MinLength = 3
				return c
			},
			want: ReasonTooShort,
		},
	}

	f := NewFilter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			if tt.cfg != nil {
				cfg = tt.cfg(base)
			}
			v := f.Classify(tt.in, cfg)
			if tt.accept {
				assert.True(t, v.Accepted, "verdict: %s", v)
				return
			}
			assert.True(t, v.Rejected())
			assert.Equal(t, tt.want, v.Reason, "verdict: %s", v)
		})
	}
}

func TestFilter_DeterministicFirstMatch(t *testing.T) {
	f := NewFilter()
	cfg := DefaultConfig(10)
	in := Input{Length: 30, RawText: "As an AI I'm not sure"}

	first := f.Classify(in, cfg)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, f.Classify(in, cfg))
	}
	assert.Equal(t, ReasonTooLong, first.Reason)
	assert.Equal(t, "length-ceiling", first.Rule)
}

func TestFilter_DoesNotMutateConfig(t *testing.T) {
	f := NewFilter()
	cfg := DefaultConfig(10)
	cfg.RequiredFormat = FormatJSON
	cfg.RequiredFields = []string{"action"}
	before := DefaultConfig(10)
	before.RequiredFormat = FormatJSON
	before.RequiredFields = []string{"action"}

	_ = f.Classify(Input{Length: 5, RawText: `{"x":1}`}, cfg)
	assert.Equal(t, before, cfg)
}

func TestFilter_CustomRule(t *testing.T) {
	f := NewFilter(bannedWordRule{word: "teleport"})
	v := f.Classify(Input{Length: 5, RawText: "teleport disk"}, DefaultConfig(10))
	assert.Equal(t, Reason("banned_word"), v.Reason)
	assert.Equal(t, "banned-word", v.Rule)

	names := f.Rules()
	assert.Equal(t, "length-ceiling", names[0])
	assert.Equal(t, "banned-word", names[len(names)-1])
}

func TestNewFilterWithRules(t *testing.T) {
	f := NewFilterWithRules(SelfReferenceRule{})
	// Length ceiling is not installed, so only self reference can fire.
	v := f.Classify(Input{Length: 1000, RawText: "fine"}, DefaultConfig(1))
	assert.True(t, v.Accepted)
	v = f.Classify(Input{Length: 1000, RawText: "as a language model"}, DefaultConfig(1))
	assert.Equal(t, ReasonSelfReference, v.Reason)
}

func TestClassify_Candidate(t *testing.T) {
	f := NewFilter()
	c := candidate.New("C", strings.Repeat("x", 30))
	v := Classify(f, c, DefaultConfig(10))
	assert.Equal(t, ReasonTooLong, v.Reason)
}

func TestRepetitionRule(t *testing.T) {
	cfg := Config{RepetitionThreshold: 0.3}
	looping := strings.Repeat("move the disk ", 10)
	detail, flagged := RepetitionRule{}.Check(Input{RawText: looping}, cfg)
	assert.True(t, flagged)
	assert.Contains(t, detail, "repeated trigrams")

	short := "move the disk move the disk"
	_, flagged = RepetitionRule{}.Check(Input{RawText: short}, cfg)
	assert.False(t, flagged, "texts under 20 words are not judged")

	varied := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty"
	_, flagged = RepetitionRule{}.Check(Input{RawText: varied}, cfg)
	assert.False(t, flagged)

	_, flagged = RepetitionRule{}.Check(Input{RawText: looping}, Config{})
	assert.False(t, flagged, "zero threshold disables the rule")
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig(10).Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative expected length", Config{ExpectedLength: -1}},
		{"negative ratio", Config{MaxLengthRatio: -2}},
		{"unknown format", Config{RequiredFormat: "xml"}},
		{"fields without structured format", Config{RequiredFields: []string{"a"}}},
		{"negative min length", Config{MinLength: -1}},
		{"threshold out of range", Config{RepetitionThreshold: 1}},
		{"empty hedge pattern", Config{HedgePatterns: []string{" "}}},
		{"empty self reference pattern", Config{SelfReferencePatterns: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestDefaultConfig_FlagsPhrasingVariants(t *testing.T) {
	tests := []struct {
		text string
		want Reason
	}{
		{"I'm not entirely sure, but disk 1 goes to C", ReasonHedging},
		{"I am not completely certain: move disk 1", ReasonHedging},
		{"I'm not totally sure about this", ReasonHedging},
		{"I think it might be peg B", ReasonHedging},
		{"I'm just guessing: peg C", ReasonHedging},
		{"I don't really know, maybe A", ReasonHedging},
		{"This may be wrong, move disk 2", ReasonHedging},
		{"Let me think about this. Disk 1 to C", ReasonSelfReference},
		{"Allow me to reflect: disk 1 to C", ReasonSelfReference},
		{"Let me consider the pegs first", ReasonSelfReference},
		{"Wait, I need to rethink. Disk 3 to B", ReasonSelfReference},
		{"Hold on, let me reconsider the move", ReasonSelfReference},
		{"I can't actually perform that, but C", ReasonSelfReference},
		{"I am unable to execute this move", ReasonSelfReference},
		{"I cannot really do that", ReasonSelfReference},
		{"As a language model I pick C", ReasonSelfReference},
	}

	f := NewFilter()
	cfg := DefaultConfig(0)
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v := f.Classify(Input{Length: len(tt.text), RawText: tt.text}, cfg)
			assert.False(t, v.Accepted)
			assert.Equal(t, tt.want, v.Reason)
		})
	}

	accepted := []string{"move disk 1 from A to C", "I think disk 1 goes to C", "I cannot see peg D, using C"}
	for _, text := range accepted {
		assert.True(t, f.Classify(Input{Length: len(text), RawText: text}, cfg).Accepted, text)
	}
}

func TestDefaultConfig_CopiesPatterns(t *testing.T) {
	cfg := DefaultConfig(5)
	cfg.HedgePatterns[0] = "changed"
	assert.NotEqual(t, "changed", DefaultHedgePatterns[0])
	assert.Equal(t, DefaultMaxLengthRatio, cfg.MaxLengthRatio)
}

type bannedWordRule struct {
	word string
}

func (bannedWordRule) Name() string   { return "banned-word" }
func (bannedWordRule) Reason() Reason { return "banned_word" }

func (r bannedWordRule) Check(in Input, _ Config) (string, bool) {
	if strings.Contains(in.RawText, r.word) {
		return "banned: " + r.word, true
	}
	return "", false
}
