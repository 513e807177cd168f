package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"allrentr/models"
)

// gatedQuerier blocks queries for one radius until released.
type gatedQuerier struct {
	fakeQuerier
	gateRadius float64
	entered    chan struct{}
	release    chan struct{}
}

func (g *gatedQuerier) FindNearby(ctx context.Context, lat, lng, radius float64) ([]models.NearbyRow, error) {
	if radius == g.gateRadius {
		close(g.entered)
		<-g.release
	}
	return g.fakeQuerier.FindNearby(ctx, lat, lng, radius)
}

func sessionListings() []*models.Listing {
	return []*models.Listing{
		at("A", 12.9720, 77.5950),
		at("C", 12.99, 77.61),
		at("B", 13.05, 77.60),
	}
}

func TestSessionEnableNearby(t *testing.T) {
	ctx := context.Background()
	listings := sessionListings()
	origin := models.Position{Lat: bangaloreLat, Lng: bangaloreLng}

	s := NewNearbySession(NewProximityResolver(nil, nil, newTestLogger()), fixedProvider(origin),
		DefaultPositionOptions(), 5000, newTestLogger())
	s.SetListings(ctx, listings)

	notice, err := s.EnableNearby(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notice.Kind != models.NoticeLocationEnabled {
		t.Errorf("notice kind: got %q", notice.Kind)
	}

	v := s.View()
	if !v.Nearby {
		t.Fatal("expected a nearby view")
	}
	if diff := cmp.Diff([]string{"A", "C"}, ids(v.Listings)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	s.SetRadius(ctx, 20000)
	if diff := cmp.Diff([]string{"A", "C", "B"}, ids(s.View().Listings)); diff != "" {
		t.Errorf("after widening (-want +got):\n%s", diff)
	}

	s.DisableNearby()
	if s.Result() != nil || s.State().NearbyEnabled {
		t.Error("DisableNearby should clear the result and the flag")
	}
	if got := len(s.View().Listings); got != len(listings) {
		t.Errorf("base view: got %d listings, want %d", got, len(listings))
	}
}

func TestSessionEnableNearbyFailureForcesOff(t *testing.T) {
	ctx := context.Background()
	s := NewNearbySession(NewProximityResolver(nil, nil, newTestLogger()), failingProvider(ErrPermissionDenied),
		DefaultPositionOptions(), 5000, newTestLogger())
	s.Update(func(v models.ViewState) models.ViewState {
		return v.WithNearby(models.Position{Lat: 1, Lng: 1}, 5000)
	})

	notice, err := s.EnableNearby(ctx)
	if err == nil {
		t.Fatal("expected an error")
	}
	if notice == nil || notice.Kind != models.NoticeLocationUnavailable {
		t.Errorf("notice: got %+v", notice)
	}
	state := s.State()
	if state.NearbyEnabled || state.Origin != nil {
		t.Errorf("nearby should be forced off, got %+v", state)
	}
}

func TestSessionDropsStaleResult(t *testing.T) {
	ctx := context.Background()
	listings := sessionListings()
	q := &gatedQuerier{
		fakeQuerier: fakeQuerier{rows: []models.NearbyRow{
			{ID: "A", DistanceMeters: 62},
			{ID: "C", DistanceMeters: 2500},
			{ID: "B", DistanceMeters: 8737},
		}},
		gateRadius: 2000,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	resolver := NewProximityResolver(q, newFakeFetcher(listings...), newTestLogger())
	s := NewNearbySession(resolver, fixedProvider(models.Position{Lat: bangaloreLat, Lng: bangaloreLng}),
		DefaultPositionOptions(), 10000, newTestLogger())
	s.SetListings(ctx, listings)
	if _, err := s.EnableNearby(ctx); err != nil {
		t.Fatalf("enable: %v", err)
	}

	s.Update(func(v models.ViewState) models.ViewState { v.RadiusMeters = 2000; return v })
	applied := make(chan bool, 1)
	go func() { applied <- s.Refresh(ctx) }()

	select {
	case <-q.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("slow query never started")
	}

	s.Update(func(v models.ViewState) models.ViewState { v.RadiusMeters = 20000; return v })
	if !s.Refresh(ctx) {
		t.Fatal("latest refresh should be applied")
	}

	close(q.release)
	if <-applied {
		t.Error("superseded refresh must not be applied")
	}

	res := s.Result()
	if res.RadiusMeters != 20000 {
		t.Errorf("result radius: got %v, want 20000", res.RadiusMeters)
	}
	if diff := cmp.Diff([]string{"A", "C", "B"}, hitIDs(res.Hits)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionSelectCluster(t *testing.T) {
	ctx := context.Background()
	listings := []*models.Listing{
		{ID: "1", City: "Pune"}, {ID: "2", City: "Mumbai"}, {ID: "3", City: "Pune"},
	}
	s := NewNearbySession(NewProximityResolver(nil, nil, newTestLogger()), nil, DefaultPositionOptions(), 5000, newTestLogger())
	s.SetListings(ctx, listings)
	s.Update(func(v models.ViewState) models.ViewState { return v.WithClusterMode(models.ClusterCity) })

	if v := s.View(); v.Kind != ViewClusters || len(v.Clusters) != 2 {
		t.Fatalf("expected two city clusters, got %+v", v)
	}
	if s.SelectCluster("Delhi") {
		t.Error("unknown cluster should not be selected")
	}
	if !s.SelectCluster("Pune") {
		t.Fatal("expected Pune to be selected")
	}
	if diff := cmp.Diff([]string{"1", "3"}, ids(s.View().Listings)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
