package geo

import (
	"math"
	"testing"
)

func TestHaversineKnownDistances(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantMeters             float64
	}{
		// Published great-circle distances between city centres.
		{"London-Paris", 51.5074, -0.1278, 48.8566, 2.3522, 343_500},
		{"Bangalore-Chennai", 12.9716, 77.5946, 13.0827, 80.2707, 290_200},
		{"NewYork-LosAngeles", 40.7128, -74.0060, 34.0522, -118.2437, 3_935_700},
	}

	for _, tt := range tests {
		got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
		if rel := math.Abs(got-tt.wantMeters) / tt.wantMeters; rel > 0.005 {
			t.Errorf("%s: got %.0fm, want %.0fm (off by %.2f%%)", tt.name, got, tt.wantMeters, rel*100)
		}
	}
}

func TestHaversineSymmetricAndZero(t *testing.T) {
	if d := Haversine(12.9716, 77.5946, 12.9716, 77.5946); d != 0 {
		t.Errorf("same point: got %f, want 0", d)
	}
	a := Haversine(12.9716, 77.5946, 13.05, 77.60)
	b := Haversine(13.05, 77.60, 12.9716, 77.5946)
	if a != b {
		t.Errorf("asymmetric: %f vs %f", a, b)
	}
}

func TestCellKey(t *testing.T) {
	tests := []struct {
		lat, lng float64
		want     string
	}{
		{12.9716, 77.5946, "12.97,77.59"},
		{12.976, 77.596, "12.98,77.60"},
		{-33.8688, 151.2093, "-33.87,151.21"},
		{0.001, -0.004, "0.00,0.00"},
		{-0.004, 0.004, "0.00,0.00"},
	}

	for _, tt := range tests {
		if got := CellKey(tt.lat, tt.lng); got != tt.want {
			t.Errorf("CellKey(%v, %v) = %q; want %q", tt.lat, tt.lng, got, tt.want)
		}
	}
}

func TestCellCenterRoundTrip(t *testing.T) {
	lat, lng, err := CellCenter("12.97,77.59")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lat != 12.97 || lng != 77.59 {
		t.Errorf("got (%v, %v), want (12.97, 77.59)", lat, lng)
	}
	if _, _, err := CellCenter("Pune"); err == nil {
		t.Error("expected error for non-grid key")
	}
}

func TestGeohashPrecision(t *testing.T) {
	h := Geohash(12.9716, 77.5946)
	if len(h) != GeohashPrecision {
		t.Errorf("geohash length: got %d, want %d", len(h), GeohashPrecision)
	}
	if h != "tdr1v9qtj" {
		t.Errorf("geohash: got %q, want tdr1v9qtj", h)
	}
}
