package model

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewPlaceRecord_Valid(t *testing.T) {
	doc := Document{
		ID:          "123",
		Name:        "  Lakeside Park  ",
		Category:    "Travel > Park",
		RoadAddress: "1 Lake Rd",
		Address:     "100-1 Lake-dong",
		Lat:         "37.001",
		Lon:         "127.001",
	}

	rec, err := NewPlaceRecord(doc, "KakaoAPI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Name != "Lakeside Park" {
		t.Errorf("expected trimmed name, got %q", rec.Name)
	}
	if rec.Address != "1 Lake Rd" {
		t.Errorf("expected road address to win, got %q", rec.Address)
	}
	if rec.Latitude != 37.001 || rec.Longitude != 127.001 {
		t.Errorf("unexpected coordinates %v,%v", rec.Latitude, rec.Longitude)
	}
	if rec.SourceID != "123" || rec.SourceName != "KakaoAPI" {
		t.Errorf("unexpected provenance %q/%q", rec.SourceID, rec.SourceName)
	}
	if len(rec.ImageURLs) != 0 {
		t.Errorf("expected no images before enrichment, got %v", rec.ImageURLs)
	}
}

func TestNewPlaceRecord_AddressFallback(t *testing.T) {
	doc := Document{ID: "1", Name: "Cafe", Address: "lot 7", Lat: "37.5", Lon: "127.0"}
	rec, err := NewPlaceRecord(doc, "KakaoAPI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Address != "lot 7" {
		t.Errorf("expected lot address fallback, got %q", rec.Address)
	}
}

func TestNewPlaceRecord_MissingFields(t *testing.T) {
	base := Document{ID: "9", Name: "Cafe", RoadAddress: "1 Main St", Lat: "37.5", Lon: "127.0"}

	tests := []struct {
		desc  string
		edit  func(d *Document)
		field string
	}{
		{"blank name", func(d *Document) { d.Name = "   " }, "name"},
		{"no address", func(d *Document) { d.RoadAddress = "" }, "address"},
		{"no latitude", func(d *Document) { d.Lat = "" }, "latitude"},
		{"bad longitude", func(d *Document) { d.Lon = "east" }, "longitude"},
		{"out of range", func(d *Document) { d.Lat = "137.5" }, "coordinates"},
		{"nan latitude", func(d *Document) { d.Lat = "NaN" }, "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			doc := base
			tt.edit(&doc)
			_, err := NewPlaceRecord(doc, "KakaoAPI")
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, vErr.Field)
			}
		})
	}
}

func TestValidCoordinate(t *testing.T) {
	if !ValidCoordinate(0, 0) {
		t.Error("expected 0,0 to be a valid coordinate")
	}
	if ValidCoordinate(math.NaN(), 127) {
		t.Error("expected NaN latitude to be invalid")
	}
	if ValidCoordinate(37, math.Inf(1)) {
		t.Error("expected infinite longitude to be invalid")
	}
	if ValidCoordinate(37, 181) {
		t.Error("expected longitude 181 to be invalid")
	}
}

func TestCrawlConfig_Keywords(t *testing.T) {
	cfg := CrawlConfig{
		Regions: []string{"서울", " 경기 ", ""},
		Themes:  []string{"한옥카페", "수목원", "한옥카페"},
	}

	got := cfg.Keywords()
	want := []string{"서울 한옥카페", "서울 수목원", "경기 한옥카페", "경기 수목원", "한옥카페", "수목원"}
	if len(got) != len(want) {
		t.Fatalf("expected %d keywords, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRunReport_Totals(t *testing.T) {
	r := NewRunReport("KakaoAPI", fixedTime)
	if len(r.ID) != 26 {
		t.Errorf("expected 26-char ULID, got %q", r.ID)
	}
	r.Keywords = []KeywordStats{
		{Keyword: "a", Fetched: 10, Admitted: 4, RejectedSimilar: 3, Invalid: 1, FailedPages: 1},
		{Keyword: "b", Fetched: 5, Admitted: 2, RejectedFacility: 2, Repeated: 1, FailedPages: 2},
	}
	total := r.Totals()
	if total.Fetched != 15 || total.Admitted != 6 || total.RejectedSimilar != 3 || total.RejectedFacility != 2 || total.FailedPages != 3 {
		t.Errorf("unexpected totals: %+v", total)
	}
	if r.Duration() != 0 {
		t.Errorf("expected zero duration for unfinished run, got %v", r.Duration())
	}
}

var fixedTime = mustTime("2026-10-17T09:00:00Z")

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
