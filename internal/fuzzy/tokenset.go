// Package fuzzy implements the token-set similarity score used to compare
// place names and addresses.
//
// Scores are on a 0-100 scale and follow the rapidfuzz/fuzzywuzzy
// token_set_ratio contract: symmetric, insensitive to token order and
// repetition, and 100 whenever one token set contains the other.
// Strings are compared rune by rune and case-sensitively; tokens are split on
// Unicode whitespace.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// TokenSetRatio scores a and b by comparing their sorted token intersection
// against each full token set.
func TokenSetRatio(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var intersection, diffAB, diffBA []string
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			intersection = append(intersection, tok)
		} else {
			diffAB = append(diffAB, tok)
		}
	}
	for tok := range tokensB {
		if _, ok := tokensA[tok]; !ok {
			diffBA = append(diffBA, tok)
		}
	}

	// one set contains the other
	if len(intersection) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	sect := joinSorted(intersection)
	ab := joinSorted(diffAB)
	ba := joinSorted(diffBA)

	sectLen := runeLen(sect)
	abLen := runeLen(ab)
	baLen := runeLen(ba)

	// "sect ab" vs "sect ba": the shared prefix cancels out of the indel
	// distance but still counts toward the total length
	sectABLen := abLen
	sectBALen := baLen
	if sectLen > 0 {
		sectABLen += sectLen + 1
		sectBALen += sectLen + 1
	}
	result := normalized(indelDistance(ab, ba), sectABLen+sectBALen)
	if sectLen == 0 {
		return result
	}

	// "sect" vs "sect ab" differs only by the appended " ab" part
	sectABRatio := normalized(1+abLen, sectLen+sectABLen)
	sectBARatio := normalized(1+baLen, sectLen+sectBALen)

	return max(result, sectABRatio, sectBARatio)
}

// Ratio is the normalized indel similarity of a and b on a 0-100 scale:
// 100 * (1 - indel(a, b) / (len(a) + len(b))).
func Ratio(a, b string) float64 {
	return normalized(indelDistance(a, b), runeLen(a)+runeLen(b))
}

// indelDistance counts the insertions and deletions turning a into b
func indelDistance(a, b string) int {
	return runeLen(a) + runeLen(b) - 2*edlib.LCS(a, b)
}

func normalized(dist, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * (1 - float64(dist)/float64(total))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func joinSorted(tokens []string) string {
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func runeLen(s string) int {
	return len([]rune(s))
}
