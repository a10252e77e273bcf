package dedup

import (
	"math"

	"github.com/ppiankov/placecrawl/internal/model"
)

// IsClose reports whether two coordinates lie within tolerance degrees of
// each other on both axes.
//
// This is an axis-aligned box in degrees, not a great-circle distance, so
// the tolerance in meters shrinks in longitude away from the equator
// (0.0005 deg is ~55m north-south, ~44m east-west at 37N). Missing or
// invalid coordinates never match.
func IsClose(lat1, lon1, lat2, lon2, tolerance float64) bool {
	if !(tolerance > 0) {
		return false
	}
	if !model.ValidCoordinate(lat1, lon1) || !model.ValidCoordinate(lat2, lon2) {
		return false
	}
	return math.Abs(lat1-lat2) < tolerance && math.Abs(lon1-lon2) < tolerance
}

func recordsClose(a, b *model.PlaceRecord, tolerance float64) bool {
	return IsClose(a.Latitude, a.Longitude, b.Latitude, b.Longitude, tolerance)
}
