package filter

import (
	"regexp"
	"strings"
)

// Matcher answers whole-word queries over a fixed list of literal phrases.
// It is immutable after Compile; the engine swaps whole matchers on
// configuration updates so readers never see a half-built one.
type Matcher struct {
	patterns []*regexp.Regexp
}

// Compile builds a matcher for the given phrases. Phrases are matched
// literally (special characters carry no pattern meaning) and only at word
// boundaries, so "hmm" never matches inside "hammer". Blank phrases are
// skipped.
func Compile(phrases []string, caseSensitive bool) *Matcher {
	patterns := make([]*regexp.Regexp, 0, len(phrases))
	for _, phrase := range phrases {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		expr := `\b` + regexp.QuoteMeta(phrase) + `\b`
		if !caseSensitive {
			expr = `(?i)` + expr
		}
		patterns = append(patterns, regexp.MustCompile(expr))
	}
	return &Matcher{patterns: patterns}
}

// ContainsAny reports whether any compiled phrase occurs in text as a
// whole word or phrase.
func (m *Matcher) ContainsAny(text string) bool {
	for _, p := range m.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// StripAll returns text with every occurrence of every phrase removed,
// leaving the surrounding context intact.
func (m *Matcher) StripAll(text string) string {
	for _, p := range m.patterns {
		text = p.ReplaceAllString(text, "")
	}
	return text
}

// Len returns the number of compiled phrases.
func (m *Matcher) Len() int {
	return len(m.patterns)
}
