package dedup

import (
	"strings"

	"github.com/ppiankov/placecrawl/internal/fuzzy"
	"github.com/ppiankov/placecrawl/internal/model"
)

// Thresholds are the knobs shared by both duplicate judges
type Thresholds struct {
	Name       float64 // token-set score, 0-100
	Address    float64 // token-set score, 0-100
	Core       float64 // token-set score between core keywords, 0-100
	SimilarGPS float64 // degrees, near-duplicate corroboration
	CoreGPS    float64 // degrees, same-site cluster
}

// DefaultThresholds returns the thresholds used across the pipeline
func DefaultThresholds() Thresholds {
	return ThresholdsFromConfig(model.DefaultDedupConfig())
}

// ThresholdsFromConfig converts the configuration section to Thresholds
func ThresholdsFromConfig(cfg model.DedupConfig) Thresholds {
	return Thresholds{
		Name:       cfg.NameThreshold,
		Address:    cfg.AddressThreshold,
		Core:       cfg.CoreThreshold,
		SimilarGPS: cfg.SimilarGPSTolerance,
		CoreGPS:    cfg.CoreGPSTolerance,
	}
}

// IsSimilar reports whether candidate and existing denote the same place:
// names must agree strongly, corroborated by either address or GPS.
// Addresses from the same API often differ in form (road vs. lot) for the
// identical place, hence the OR.
//
// Records lacking a name, an address or coordinates are never similar.
func IsSimilar(candidate, existing *model.PlaceRecord, nameThreshold, addressThreshold, gpsTolerance float64) bool {
	if !complete(candidate) || !complete(existing) {
		return false
	}

	nameScore := fuzzy.TokenSetRatio(candidate.Name, existing.Name)
	if nameScore < nameThreshold {
		return false
	}

	addrScore := fuzzy.TokenSetRatio(candidate.Address, existing.Address)
	return addrScore >= addressThreshold || recordsClose(candidate, existing, gpsTolerance)
}

func complete(p *model.PlaceRecord) bool {
	return p != nil &&
		strings.TrimSpace(p.Name) != "" &&
		strings.TrimSpace(p.Address) != "" &&
		p.HasLocation()
}
