package services

import (
	"testing"

	"allrentr/models"
)

func TestInsightGenerate(t *testing.T) {
	s := NewInsightService(newTestLogger())
	listings := []*models.Listing{
		{ID: "1", City: "Pune", PinCode: "411001", Latitude: fptr(18.52), Longitude: fptr(73.85)},
		{ID: "2", City: "Pune", PinCode: "411001"},
		{ID: "3", City: "Mumbai", PinCode: "400001", Latitude: fptr(19.07), Longitude: fptr(72.87)},
		{ID: "4"},
	}
	nearby := &models.ProximityResult{
		RadiusMeters: 5000,
		Source:       models.SourceFallback,
		Hits:         []models.NearbyHit{{Listing: listings[0], DistanceMeters: 120}},
	}

	r := s.Generate(listings, nearby, models.ClusterPin)

	if r.TotalListings != 4 || r.WithCoordinates != 2 {
		t.Errorf("totals = %d/%d; want 4/2", r.TotalListings, r.WithCoordinates)
	}
	if r.ListingsByCity["Pune"] != 2 || r.ListingsByCity["Unknown"] != 1 {
		t.Errorf("by city = %v", r.ListingsByCity)
	}
	if r.NearbyCount != 1 || r.Closest == nil || r.Closest.Listing.ID != "1" {
		t.Errorf("nearby = %d, closest = %+v", r.NearbyCount, r.Closest)
	}
	if len(r.TopClusters) != 3 || r.TopClusters[0].Label != "PIN 411001" {
		t.Errorf("top clusters = %+v", r.TopClusters)
	}
}

func TestInsightGenerateWithoutNearby(t *testing.T) {
	s := NewInsightService(newTestLogger())
	r := s.Generate([]*models.Listing{{ID: "1"}}, nil, models.ClusterNone)

	if r.RadiusMeters != 0 || r.Closest != nil || r.TopClusters != nil {
		t.Errorf("unexpected nearby/cluster data: %+v", r)
	}
}

func TestFormatKm(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{5000, "5"},
		{2500, "2.5"},
		{10000, "10"},
		{1234, "1.23"},
		{0, "0"},
		{4, "0"},
	}
	for _, tt := range tests {
		if got := FormatKm(tt.meters); got != tt.want {
			t.Errorf("FormatKm(%v) = %q; want %q", tt.meters, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate kept = %q", got)
	}
	if got := Truncate("a very long product name", 10); got != "a very ..." {
		t.Errorf("Truncate = %q", got)
	}
}
