package geo

import (
	"math"
	"testing"
)

func TestDistance_Symmetric(t *testing.T) {
	t.Parallel()

	points := [][4]float64{
		{9.03, 38.75, 9.05, 38.77},
		{9.0, 38.7, 9.1, 38.8},
		{-33.8688, 151.2093, 51.5074, -0.1278},
	}

	for _, p := range points {
		ab := Distance(p[0], p[1], p[2], p[3])
		ba := Distance(p[2], p[3], p[0], p[1])
		if ab != ba {
			t.Errorf("distance not symmetric: %v vs %v for %v", ab, ba, p)
		}
	}
}

func TestDistance_ZeroForIdenticalPoints(t *testing.T) {
	t.Parallel()

	if d := Distance(9.03, 38.75, 9.03, 38.75); d != 0 {
		t.Errorf("expected 0 for identical points, got %v", d)
	}
}

func TestDistance_NearbyPoints(t *testing.T) {
	t.Parallel()

	// Roughly 130 m apart in the Addis Ababa area.
	d := Distance(9.03, 38.75, 9.031, 38.751)
	if d <= 0 {
		t.Fatalf("expected positive distance, got %v", d)
	}
	if d > 0.2 {
		t.Errorf("expected ~0.13 km, got %v", d)
	}
}

func TestDistance_RoundedToTwoDecimals(t *testing.T) {
	t.Parallel()

	d := Distance(9.03, 38.75, 9.05, 38.77)
	if rounded := math.Round(d*100) / 100; rounded != d {
		t.Errorf("distance %v not rounded to 2 decimals", d)
	}
}

func TestFormatDistance(t *testing.T) {
	t.Parallel()

	cases := []struct {
		km   float64
		want string
	}{
		{0.5, "500 m"},
		{0.05, "50 m"},
		{0.999, "999 m"},
		{1.0, "1.0 km"},
		{1.23, "1.2 km"},
		{10.5, "10.5 km"},
	}

	for _, tc := range cases {
		if got := FormatDistance(tc.km); got != tc.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tc.km, got, tc.want)
		}
	}
}

func TestFormatCoordinates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		lat, lng float64
		want     string
	}{
		{9.0234, 38.7456, "9.023°N, 38.746°E"},
		{-33.8688, 151.2093, "33.869°S, 151.209°E"},
		{51.5074, -0.1278, "51.507°N, 0.128°W"},
	}

	for _, tc := range cases {
		if got := FormatCoordinates(tc.lat, tc.lng); got != tc.want {
			t.Errorf("FormatCoordinates(%v, %v) = %q, want %q", tc.lat, tc.lng, got, tc.want)
		}
	}
}

func TestRandomPoint_WithinBounds(t *testing.T) {
	t.Parallel()

	b := Bounds{LatMin: 9.0, LatMax: 9.1, LngMin: 38.7, LngMax: 38.8}
	for i := 0; i < 100; i++ {
		lat, lng := RandomPoint(b)
		if lat < b.LatMin || lat > b.LatMax {
			t.Fatalf("lat %v out of bounds", lat)
		}
		if lng < b.LngMin || lng > b.LngMax {
			t.Fatalf("lng %v out of bounds", lng)
		}
	}
}
