package dedup

import (
	"strings"
	"sync"

	"github.com/ppiankov/placecrawl/internal/model"
)

// Reason explains an admission decision
type Reason string

const (
	ReasonAdmitted     Reason = "admitted"
	ReasonSimilar      Reason = "similar"       // near-duplicate name with matching address or GPS
	ReasonSameFacility Reason = "same_facility" // another facility of an accepted site
)

// Decision is the outcome of one admission
type Decision struct {
	Admitted bool
	Reason   Reason
	Match    model.PlaceRecord // accepted record that caused a rejection
}

// Catalog accumulates the deduplicated set of places.
//
// Admission is the only way into the catalog. The scan over accepted records
// and the append run under one lock, so concurrent admissions of
// near-duplicates cannot both succeed. Insertion order is kept: the first
// admitted record of a duplicate cluster wins.
type Catalog struct {
	mu         sync.Mutex
	accepted   []*model.PlaceRecord
	thresholds Thresholds
	extractor  *KeywordExtractor
}

// NewCatalog creates an empty catalog. A nil extractor uses DefaultCoreSuffixes.
func NewCatalog(thresholds Thresholds, extractor *KeywordExtractor) *Catalog {
	if extractor == nil {
		extractor = NewKeywordExtractor(model.DefaultCoreSuffixes)
	}
	return &Catalog{
		thresholds: thresholds,
		extractor:  extractor,
	}
}

// NewCatalogFromConfig creates an empty catalog from the dedup configuration
func NewCatalogFromConfig(cfg model.DedupConfig) *Catalog {
	suffixes := cfg.CoreSuffixes
	if len(suffixes) == 0 {
		suffixes = model.DefaultCoreSuffixes
	}
	return NewCatalog(ThresholdsFromConfig(cfg), NewKeywordExtractor(suffixes))
}

// Admit adds record unless it duplicates an accepted record and reports
// whether it was added. The catalog keeps the pointer; callers must not
// modify the record afterwards except through AttachImages.
func (c *Catalog) Admit(record *model.PlaceRecord) bool {
	return c.AdmitDecision(record).Admitted
}

// AdmitDecision is Admit with the reason for a rejection
func (c *Catalog) AdmitDecision(record *model.PlaceRecord) Decision {
	if record == nil {
		return Decision{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.accepted {
		if reason, dup := c.judge(record, existing); dup {
			return Decision{Reason: reason, Match: copyRecord(existing)}
		}
	}

	c.accepted = append(c.accepted, record)
	return Decision{Admitted: true, Reason: ReasonAdmitted}
}

// judge runs both duplicate judges against one accepted record, similarity first
func (c *Catalog) judge(candidate, existing *model.PlaceRecord) (Reason, bool) {
	t := c.thresholds
	if IsSimilar(candidate, existing, t.Name, t.Address, t.SimilarGPS) {
		return ReasonSimilar, true
	}
	if c.extractor.IsSameFacility(candidate, existing, t.CoreGPS, t.Core) {
		return ReasonSameFacility, true
	}
	return "", false
}

// AttachImages sets the image URLs of an admitted record. It only takes
// effect once per record and is a no-op for records not in the catalog.
func (c *Catalog) AttachImages(record *model.PlaceRecord, urls []string) bool {
	if record == nil || len(urls) == 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.accepted {
		if existing != record {
			continue
		}
		if len(existing.ImageURLs) > 0 {
			return false
		}
		existing.ImageURLs = append([]string(nil), urls...)
		return true
	}
	return false
}

// Len returns the number of accepted records
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.accepted)
}

// Records returns a copy of the accepted records in insertion order
func (c *Catalog) Records() []model.PlaceRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.PlaceRecord, len(c.accepted))
	for i, r := range c.accepted {
		out[i] = copyRecord(r)
	}
	return out
}

// Violation names two accepted records that the judges consider duplicates
type Violation struct {
	First, Second int
	Reason        Reason
}

// Violations re-checks every pair of accepted records in both directions.
// A non-empty result means admission let a duplicate through.
func (c *Catalog) Violations() []Violation {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Violation
	for i := 0; i < len(c.accepted); i++ {
		for j := i + 1; j < len(c.accepted); j++ {
			if reason, dup := c.judge(c.accepted[j], c.accepted[i]); dup {
				out = append(out, Violation{First: i, Second: j, Reason: reason})
				continue
			}
			if reason, dup := c.judge(c.accepted[i], c.accepted[j]); dup {
				out = append(out, Violation{First: i, Second: j, Reason: reason})
			}
		}
	}
	return out
}

// UniqueBySourceID keeps the first record of every source ID and drops
// records without one. It returns the kept records and how many were dropped.
func UniqueBySourceID(records []model.PlaceRecord) ([]model.PlaceRecord, int) {
	seen := make(map[string]bool, len(records))
	out := make([]model.PlaceRecord, 0, len(records))
	for _, r := range records {
		id := strings.TrimSpace(r.SourceID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, r)
	}
	return out, len(records) - len(out)
}

func copyRecord(r *model.PlaceRecord) model.PlaceRecord {
	out := *r
	if r.ImageURLs != nil {
		out.ImageURLs = append([]string(nil), r.ImageURLs...)
	}
	return out
}
