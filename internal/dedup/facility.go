package dedup

import (
	"strings"

	"github.com/ppiankov/placecrawl/internal/fuzzy"
	"github.com/ppiankov/placecrawl/internal/model"
)

// IsSameFacility reports whether candidate and existing are different
// facilities of one parent site, e.g. a park's entrance and its parking lot.
//
// The records must be within gpsTolerance, their core keywords must score at
// least coreThreshold, and one core must appear literally inside the other
// record's full name. The substring rule keeps two unrelated neighbouring
// sites apart even when their cores happen to look alike.
func (e *KeywordExtractor) IsSameFacility(candidate, existing *model.PlaceRecord, gpsTolerance, coreThreshold float64) bool {
	if candidate == nil || existing == nil {
		return false
	}
	if strings.TrimSpace(candidate.Name) == "" || strings.TrimSpace(existing.Name) == "" {
		return false
	}
	if !recordsClose(candidate, existing, gpsTolerance) {
		return false
	}

	candidateCore := e.CoreKeyword(candidate.Name)
	existingCore := e.CoreKeyword(existing.Name)
	if fuzzy.TokenSetRatio(candidateCore, existingCore) < coreThreshold {
		return false
	}
	return strings.Contains(existing.Name, candidateCore) || strings.Contains(candidate.Name, existingCore)
}
