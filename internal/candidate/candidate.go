// Package candidate defines the sampled answer that competes for consensus on a step.
package candidate

import "unicode/utf8"

// Candidate is one sampled output for a step. Value is the payload that votes
// are counted on; Length and RawText are only consulted by red-flag rules.
type Candidate[V comparable] struct {
	Value   V
	Length  int
	RawText string
}

// New builds a candidate whose Length is the rune count of text.
func New[V comparable](value V, text string) Candidate[V] {
	return Candidate[V]{
		Value:   value,
		Length:  utf8.RuneCountInString(text),
		RawText: text,
	}
}

// FromText builds a string candidate where the normalized text is the vote value.
func FromText(text string, normalize func(string) string) Candidate[string] {
	value := text
	if normalize != nil {
		value = normalize(text)
	}
	return New(value, text)
}
