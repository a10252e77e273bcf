package dedup

import (
	"sort"
	"strings"
)

// KeywordExtractor derives the presumed parent facility of a place name by
// stripping a trailing generic facility word ("Lakeside Park Entrance" ->
// "Lakeside Park").
type KeywordExtractor struct {
	suffixes [][]string // tokenized, longest first
}

// NewKeywordExtractor builds an extractor for the given facility suffixes.
// Multi-word suffixes such as "parking lot" are matched token by token.
func NewKeywordExtractor(suffixes []string) *KeywordExtractor {
	e := &KeywordExtractor{}
	seen := make(map[string]bool)
	for _, s := range suffixes {
		tokens := strings.Fields(strings.ToLower(s))
		if len(tokens) == 0 {
			continue
		}
		key := strings.Join(tokens, " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		e.suffixes = append(e.suffixes, tokens)
	}
	sort.SliceStable(e.suffixes, func(i, j int) bool {
		return len(e.suffixes[i]) > len(e.suffixes[j])
	})
	return e
}

// CoreKeyword returns the core facility name of name.
//
// With two or more tokens, a matching trailing suffix is removed as long as
// at least one token remains; without a suffix match only the first token
// is kept. Single-token names are returned unchanged.
func (e *KeywordExtractor) CoreKeyword(name string) string {
	tokens := strings.Fields(name)
	if len(tokens) < 2 {
		return name
	}
	for _, suffix := range e.suffixes {
		if len(tokens) <= len(suffix) {
			continue
		}
		if hasSuffixTokens(tokens, suffix) {
			return strings.Join(tokens[:len(tokens)-len(suffix)], " ")
		}
	}
	return tokens[0]
}

func hasSuffixTokens(tokens, suffix []string) bool {
	offset := len(tokens) - len(suffix)
	for i, s := range suffix {
		if !strings.EqualFold(tokens[offset+i], s) {
			return false
		}
	}
	return true
}
