package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunReport summarizes one ingestion run
type RunReport struct {
	ID           string         `json:"id"`     // ULID, sortable by start time
	Source       string         `json:"source"` // Place-search source name
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Keywords     []KeywordStats `json:"keywords"`
	Accepted     int            `json:"accepted"`      // Records in the catalog before the final ID pass
	FinalRemoved int            `json:"final_removed"` // Records dropped by the final source ID pass
	Final        int            `json:"final"`
	Cancelled    bool           `json:"cancelled"`
}

// KeywordStats counts what happened to the documents of one keyword
type KeywordStats struct {
	Keyword          string `json:"keyword"`
	Pages            int    `json:"pages"`             // Page requests that returned a response
	FailedPages      int    `json:"failed_pages"`      // Pages abandoned after retries
	Fetched          int    `json:"fetched"`           // Documents returned
	Repeated         int    `json:"repeated"`          // Same source ID seen earlier in this keyword's paging
	Invalid          int    `json:"invalid"`           // Dropped by field validation
	RejectedSimilar  int    `json:"rejected_similar"`  // Rejected as near-duplicate
	RejectedFacility int    `json:"rejected_facility"` // Rejected as another facility of an accepted site
	Admitted         int    `json:"admitted"`
	ImageFailures    int    `json:"image_failures"`
	Error            string `json:"error,omitempty"` // Last upstream error of an abandoned page
}

// NewRunReport starts a report with a fresh ULID
func NewRunReport(source string, now time.Time) *RunReport {
	return &RunReport{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0)).String(),
		Source:    source,
		StartedAt: now,
	}
}

// Totals sums the per-keyword counters
func (r *RunReport) Totals() KeywordStats {
	total := KeywordStats{Keyword: "total"}
	for _, k := range r.Keywords {
		total.Pages += k.Pages
		total.FailedPages += k.FailedPages
		total.Fetched += k.Fetched
		total.Repeated += k.Repeated
		total.Invalid += k.Invalid
		total.RejectedSimilar += k.RejectedSimilar
		total.RejectedFacility += k.RejectedFacility
		total.Admitted += k.Admitted
		total.ImageFailures += k.ImageFailures
	}
	return total
}

// Duration returns the wall time of the run
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
