package secrets

import (
	"fmt"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Allowlist holds content patterns whose matches are not reported.
type Allowlist struct {
	Regexes []string
}

// NewAllowlist validates patterns and returns them as an Allowlist.
func NewAllowlist(patterns ...string) (*Allowlist, error) {
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRegex, p, err)
		}
	}
	return &Allowlist{Regexes: append([]string(nil), patterns...)}, nil
}

// LoadAllowlist reads a gitleaks-style TOML file:
//
//	[allowlist]
//	regexes = ['''EXAMPLE[0-9]+''']
func LoadAllowlist(path string) (*Allowlist, error) {
	var file struct {
		Allowlist struct {
			Regexes []string
		}
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}
	al, err := NewAllowlist(file.Allowlist.Regexes...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return al, nil
}

// Merge returns the union of a and b. Either may be nil.
func Merge(a, b *Allowlist) *Allowlist {
	out := &Allowlist{}
	for _, al := range []*Allowlist{a, b} {
		if al != nil {
			out.Regexes = append(out.Regexes, al.Regexes...)
		}
	}
	return out
}

func (a *Allowlist) empty() bool {
	return a == nil || len(a.Regexes) == 0
}
