package services

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"allrentr/geo"
	"allrentr/models"
)

const bangaloreLat, bangaloreLng = 12.9716, 77.5946

func TestResolveBangaloreScenario(t *testing.T) {
	a := at("A", 12.9720, 77.5950)
	b := at("B", 13.05, 77.60)
	r := NewProximityResolver(nil, nil, newTestLogger())

	res := r.Resolve(context.Background(), []*models.Listing{b, a}, bangaloreLat, bangaloreLng, 5000)

	if diff := cmp.Diff([]string{"A"}, hitIDs(res.Hits)); diff != "" {
		t.Errorf("hits mismatch (-want +got):\n%s", diff)
	}
	if res.Source != models.SourceFallback {
		t.Errorf("source: got %q, want %q", res.Source, models.SourceFallback)
	}
	if d := res.Hits[0].DistanceMeters; d < 50 || d > 70 {
		t.Errorf("distance to A: got %.1fm, want ~62m", d)
	}
	if res.Notice != nil {
		t.Errorf("unexpected notice: %+v", res.Notice)
	}
}

func TestResolvePrimaryFailureFallsBack(t *testing.T) {
	listings := []*models.Listing{
		at("far-in", 12.99, 77.61),
		noCoords("null-1"),
		at("near-in", 12.9720, 77.5950),
		noCoords("null-2"),
	}
	q := &fakeQuerier{err: errQueryDown}
	r := NewProximityResolver(q, newFakeFetcher(listings...), newTestLogger())

	res := r.Resolve(context.Background(), listings, bangaloreLat, bangaloreLng, 5000)

	if q.calls != 1 {
		t.Errorf("querier calls: got %d, want 1", q.calls)
	}
	if res.Source != models.SourceFallback {
		t.Errorf("source: got %q, want fallback", res.Source)
	}
	if diff := cmp.Diff([]string{"near-in", "far-in"}, hitIDs(res.Hits)); diff != "" {
		t.Errorf("hits mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePrimaryPreservesQueryOrder(t *testing.T) {
	x, y, z := at("x", 0, 0), at("y", 0, 0), at("z", 0, 0)
	q := &fakeQuerier{rows: []models.NearbyRow{
		{ID: "y", DistanceMeters: 10},
		{ID: "x", DistanceMeters: 20},
		{ID: "y", DistanceMeters: 10},
		{ID: "ghost", DistanceMeters: 25},
		{ID: "z", DistanceMeters: 30},
	}}
	r := NewProximityResolver(q, newFakeFetcher(x, y, z), newTestLogger())

	res := r.Resolve(context.Background(), nil, 1, 1, 1000)

	if res.Source != models.SourcePrimary {
		t.Fatalf("source: got %q, want primary", res.Source)
	}
	if diff := cmp.Diff([]string{"y", "x", "z"}, hitIDs(res.Hits)); diff != "" {
		t.Errorf("hits mismatch (-want +got):\n%s", diff)
	}
	if got := res.Hits[1].DistanceMeters; got != 20 {
		t.Errorf("distance for x: got %v, want 20 (from query)", got)
	}
}

func TestResolveHydrationFailureFallsBack(t *testing.T) {
	a := at("A", 12.9720, 77.5950)
	q := &fakeQuerier{rows: []models.NearbyRow{{ID: "A", DistanceMeters: 62}}}
	f := newFakeFetcher(a)
	f.err = errQueryDown
	r := NewProximityResolver(q, f, newTestLogger())

	res := r.Resolve(context.Background(), []*models.Listing{a}, bangaloreLat, bangaloreLng, 5000)

	if res.Source != models.SourceFallback || len(res.Hits) != 1 {
		t.Errorf("got source %q with %d hits, want fallback with 1", res.Source, len(res.Hits))
	}
}

func TestResolveUnhydratedRowsFallBack(t *testing.T) {
	a := at("A", 12.9720, 77.5950)
	q := &fakeQuerier{rows: []models.NearbyRow{{ID: "ghost", DistanceMeters: 40}}}
	r := NewProximityResolver(q, newFakeFetcher(a), newTestLogger())

	res := r.Resolve(context.Background(), []*models.Listing{a}, bangaloreLat, bangaloreLng, 5000)

	if res.Source != models.SourceFallback {
		t.Fatalf("source: got %q, want fallback", res.Source)
	}
	if diff := cmp.Diff([]string{"A"}, hitIDs(res.Hits)); diff != "" {
		t.Errorf("hits mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveEmptyPrimaryMatchesDirectScan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var listings []*models.Listing
	for i := 0; i < 200; i++ {
		id := string(rune('a'+i%26)) + string(rune('A'+i/26))
		switch i % 10 {
		case 0:
			listings = append(listings, noCoords(id))
		case 1:
			listings = append(listings, nanCoords(id))
		default:
			listings = append(listings, at(id, bangaloreLat+rng.Float64()*0.4-0.2, bangaloreLng+rng.Float64()*0.4-0.2))
		}
	}
	r := NewProximityResolver(&fakeQuerier{}, newFakeFetcher(listings...), newTestLogger())

	for _, radius := range []float64{2000, 5000, 10000, 20000} {
		res := r.Resolve(context.Background(), listings, bangaloreLat, bangaloreLng, radius)

		want := map[string]bool{}
		for _, l := range listings {
			lat, lng, ok := l.Coordinates()
			if ok && geo.Haversine(bangaloreLat, bangaloreLng, lat, lng) <= radius {
				want[l.ID] = true
			}
		}

		if len(res.Hits) != len(want) {
			t.Errorf("radius %v: got %d hits, want %d", radius, len(res.Hits), len(want))
		}
		for i, h := range res.Hits {
			if !want[h.Listing.ID] {
				t.Errorf("radius %v: unexpected hit %s", radius, h.Listing.ID)
			}
			if !h.Listing.HasCoordinates() {
				t.Errorf("radius %v: hit %s has no coordinates", radius, h.Listing.ID)
			}
			if h.DistanceMeters > radius {
				t.Errorf("radius %v: hit %s at %.0fm is outside", radius, h.Listing.ID, h.DistanceMeters)
			}
			if i > 0 && h.DistanceMeters < res.Hits[i-1].DistanceMeters {
				t.Errorf("radius %v: hits not sorted at %d", radius, i)
			}
		}
	}
}

func TestComputeFallbackNotices(t *testing.T) {
	t.Run("no coordinates anywhere", func(t *testing.T) {
		hits, notice := ComputeFallback([]*models.Listing{noCoords("1"), nanCoords("2")}, 0, 0, 5000)
		if len(hits) != 0 {
			t.Errorf("hits: got %d, want 0", len(hits))
		}
		if notice == nil || notice.Kind != models.NoticeNoCoordinates {
			t.Fatalf("notice: got %+v, want no_coordinates", notice)
		}
		if notice.ClosestMeters != nil {
			t.Error("no_coordinates notice should not report a closest distance")
		}
	})

	t.Run("none within radius reports closest", func(t *testing.T) {
		b := at("B", 13.05, 77.60)
		hits, notice := ComputeFallback([]*models.Listing{b}, bangaloreLat, bangaloreLng, 2000)
		if len(hits) != 0 {
			t.Errorf("hits: got %d, want 0", len(hits))
		}
		if notice == nil || notice.Kind != models.NoticeNoneWithinRadius {
			t.Fatalf("notice: got %+v, want none_within_radius", notice)
		}
		want := "No listings found within 2km. Closest listing is 8.7km away. Try increasing the radius."
		if notice.Message != want {
			t.Errorf("message: got %q, want %q", notice.Message, want)
		}
	})

	t.Run("duplicate ids count once", func(t *testing.T) {
		a := at("A", 12.9720, 77.5950)
		hits, _ := ComputeFallback([]*models.Listing{a, a}, bangaloreLat, bangaloreLng, 5000)
		if len(hits) != 1 {
			t.Errorf("hits: got %d, want 1", len(hits))
		}
	})
}

func TestResolveSuggestsRadius(t *testing.T) {
	b := at("B", 13.05, 77.60)
	r := NewProximityResolver(nil, nil, newTestLogger()).
		WithRadiusSuggestion(func(d float64) float64 {
			if d <= 10000 {
				return 10000
			}
			return 0
		})

	res := r.Resolve(context.Background(), []*models.Listing{b}, bangaloreLat, bangaloreLng, 5000)

	if res.Notice == nil || res.Notice.SuggestedRadius != 10000 {
		t.Errorf("suggested radius: got %+v, want 10000", res.Notice)
	}
}
