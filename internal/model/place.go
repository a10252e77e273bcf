package model

import (
	"math"
	"strconv"
	"strings"
)

// PlaceRecord is a validated point of interest returned by a place-search source.
// Records are treated as immutable once constructed; ImageURLs is attached
// once, after the record has been admitted into a catalog.
type PlaceRecord struct {
	Name        string   `json:"name"`                   // Trimmed, non-empty
	RawCategory string   `json:"raw_category,omitempty"` // e.g. "Food > Cafe > Bakery"
	Address     string   `json:"address"`                // Road address preferred, lot address as fallback
	Latitude    float64  `json:"latitude"`               // WGS84 degrees
	Longitude   float64  `json:"longitude"`              // WGS84 degrees
	SourceID    string   `json:"source_id"`              // Opaque upstream identifier
	SourceName  string   `json:"source_name"`            // Provenance tag, e.g. "KakaoAPI"
	Keyword     string   `json:"keyword,omitempty"`      // Query that first produced the record
	ImageURLs   []string `json:"image_urls,omitempty"`
}

// HasLocation reports whether both coordinates are finite WGS84 values.
func (p *PlaceRecord) HasLocation() bool {
	return ValidCoordinate(p.Latitude, p.Longitude)
}

// ValidCoordinate reports whether lat/lon is a usable WGS84 pair.
// NaN marks a missing coordinate.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// NewPlaceRecord validates a raw document and builds a record from it.
// It returns a *ValidationError naming the first missing field.
func NewPlaceRecord(doc Document, sourceName string) (*PlaceRecord, error) {
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return nil, &ValidationError{DocumentID: doc.ID, Field: "name"}
	}

	address := strings.TrimSpace(doc.RoadAddress)
	if address == "" {
		address = strings.TrimSpace(doc.Address)
	}
	if address == "" {
		return nil, &ValidationError{DocumentID: doc.ID, Name: name, Field: "address"}
	}

	lat, ok := parseCoordinate(doc.Lat)
	if !ok {
		return nil, &ValidationError{DocumentID: doc.ID, Name: name, Field: "latitude"}
	}
	lon, ok := parseCoordinate(doc.Lon)
	if !ok {
		return nil, &ValidationError{DocumentID: doc.ID, Name: name, Field: "longitude"}
	}
	if !ValidCoordinate(lat, lon) {
		return nil, &ValidationError{DocumentID: doc.ID, Name: name, Field: "coordinates"}
	}

	return &PlaceRecord{
		Name:        name,
		RawCategory: strings.TrimSpace(doc.Category),
		Address:     address,
		Latitude:    lat,
		Longitude:   lon,
		SourceID:    strings.TrimSpace(doc.ID),
		SourceName:  sourceName,
	}, nil
}

func parseCoordinate(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
