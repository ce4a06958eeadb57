// Package geo provides the small geospatial toolkit the matching core needs:
// geodesic distance between coordinates and human-readable formatting.
package geo

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/tidwall/geodesic"
)

// Distance returns the geodesic distance in kilometers between two points on
// the WGS84 ellipsoid, rounded to 2 decimal places. It is symmetric and zero
// only for identical points.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}

	var meters float64
	geodesic.WGS84.Inverse(lat1, lng1, lat2, lng2, &meters, nil, nil)

	return math.Round(meters/1000*100) / 100
}

// FormatDistance renders a distance for display: values under 1 km in whole
// meters, everything else in one-decimal kilometers.
//
//	0.5  -> "500 m"
//	1.23 -> "1.2 km"
func FormatDistance(km float64) string {
	if km < 1.0 {
		return fmt.Sprintf("%d m", int(km*1000))
	}
	return fmt.Sprintf("%.1f km", km)
}

// FormatCoordinates renders a coordinate pair with hemisphere letters.
//
//	(9.0234, 38.7456) -> "9.023°N, 38.746°E"
func FormatCoordinates(lat, lng float64) string {
	latDir := "N"
	if lat < 0 {
		latDir = "S"
	}
	lngDir := "E"
	if lng < 0 {
		lngDir = "W"
	}
	return fmt.Sprintf("%.3f°%s, %.3f°%s", math.Abs(lat), latDir, math.Abs(lng), lngDir)
}

// Bounds describes a rectangular region used for simulated driver placement.
type Bounds struct {
	LatMin, LatMax float64
	LngMin, LngMax float64
}

// RandomPoint returns a uniformly distributed point inside b, rounded to six
// decimal places. Used only to place simulated drivers that register without
// coordinates.
func RandomPoint(b Bounds) (lat, lng float64) {
	lat = b.LatMin + rand.Float64()*(b.LatMax-b.LatMin)
	lng = b.LngMin + rand.Float64()*(b.LngMax-b.LngMin)
	return math.Round(lat*1e6) / 1e6, math.Round(lng*1e6) / 1e6
}
