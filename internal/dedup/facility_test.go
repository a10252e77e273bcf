package dedup

import (
	"math"
	"testing"

	"github.com/ppiankov/placecrawl/internal/model"
)

func TestIsSameFacility(t *testing.T) {
	e := NewKeywordExtractor(model.DefaultCoreSuffixes)
	th := DefaultThresholds()

	tests := []struct {
		desc     string
		a, b     *model.PlaceRecord
		expected bool
	}{
		{
			desc:     "entrance and parking lot of one park",
			a:        place("Lakeside Park Entrance", "1 Lake Rd", 37.001, 127.001),
			b:        place("Lakeside Park Parking Lot", "3 Lake Rd", 37.0011, 127.0012),
			expected: true,
		},
		{
			desc:     "hangul facilities of one park",
			a:        place("서서울호수공원 풋살장", "서울 양천구 남부순환로64길 20", 37.5277, 126.8337),
			b:        place("서서울호수공원 주차장", "서울 양천구 신월동 1", 37.5280, 126.8340),
			expected: true,
		},
		{
			desc:     "same site too far apart",
			a:        place("Lakeside Park Entrance", "1 Lake Rd", 37.001, 127.001),
			b:        place("Lakeside Park Parking Lot", "3 Lake Rd", 37.003, 127.001),
			expected: false,
		},
		{
			desc:     "similar cores but neither is a substring",
			a:        place("Greenwood Park", "1 Wood Rd", 37.5, 127.0),
			b:        place("Greenwold Library", "2 Wold Rd", 37.5003, 127.0003),
			expected: false,
		},
		{
			desc:     "unrelated neighbours",
			a:        place("Lakeside Park Entrance", "1 Lake Rd", 37.5, 127.0),
			b:        place("Museum of Art", "2 Lake Rd", 37.5003, 127.0003),
			expected: false,
		},
		{
			desc:     "missing coordinates",
			a:        place("Lakeside Park Entrance", "1 Lake Rd", math.NaN(), 127.0),
			b:        place("Lakeside Park Parking Lot", "3 Lake Rd", 37.5, 127.0),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := e.IsSameFacility(tt.a, tt.b, th.CoreGPS, th.Core); got != tt.expected {
				t.Errorf("IsSameFacility(a, b) = %v, want %v", got, tt.expected)
			}
			if got := e.IsSameFacility(tt.b, tt.a, th.CoreGPS, th.Core); got != tt.expected {
				t.Errorf("IsSameFacility(b, a) = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsSameFacility_GPSBoundary(t *testing.T) {
	e := NewKeywordExtractor(model.DefaultCoreSuffixes)
	th := DefaultThresholds()
	existing := place("Lakeside Park Entrance", "1 Lake Rd", 0, 0)

	if e.IsSameFacility(place("Lakeside Park Parking Lot", "3 Lake Rd", 0.001, 0), existing, th.CoreGPS, th.Core) {
		t.Error("expected exactly 0.001 deg apart not to be in the same cluster")
	}
	if !e.IsSameFacility(place("Lakeside Park Parking Lot", "3 Lake Rd", 0.0009, 0), existing, th.CoreGPS, th.Core) {
		t.Error("expected 0.0009 deg apart to be in the same cluster")
	}
}
