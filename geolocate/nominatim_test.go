package geolocate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allrentr/models"
	"allrentr/services"
	"allrentr/utils"
)

const bangaloreResult = `[{
	"lat": "12.9716", "lon": "77.5946",
	"address": {"town": "Bengaluru", "county": "Bangalore Urban", "state": "Karnataka", "neighbourhood": "Shivajinagar"}
}]`

// nominatimStub answers queries listed in found and returns [] for the rest.
func nominatimStub(t *testing.T, found map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("addressdetails"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "IN", q.Get("countrycodes"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		mu.Lock()
		queries = append(queries, q.Get("q"))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if body, ok := found[q.Get("q")]; ok {
			_, _ = w.Write([]byte(body))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func newTestGeocoder(url string) *Geocoder {
	return NewGeocoder(GeocoderConfig{
		BaseURL:    url,
		UserAgent:  "test-agent",
		Country:    "IN",
		MaxRetries: 1,
	}, utils.NewNopLogger())
}

func TestListingQueries(t *testing.T) {
	assert.Equal(t, []string{"12 MG Road, 560001, India", "560001, India"}, ListingQueries(" 12 MG Road ", "560001"))
	assert.Equal(t, []string{"560001, India"}, ListingQueries("", "560001"))
	assert.Equal(t, []string{"12 MG Road, India"}, ListingQueries("12 MG Road", ""))
}

func TestSearchParsesAddress(t *testing.T) {
	srv, _ := nominatimStub(t, map[string]string{"Bengaluru": bangaloreResult})
	g := newTestGeocoder(srv.URL)

	place, err := g.Search(context.Background(), "Bengaluru")
	require.NoError(t, err)

	assert.Equal(t, &models.Place{
		Lat:      12.9716,
		Lng:      77.5946,
		City:     "Bengaluru",
		State:    "Karnataka",
		Locality: "Shivajinagar",
		Geohash:  "tdr1v9qtj",
	}, place)
}

func TestSearchNotFound(t *testing.T) {
	srv, _ := nominatimStub(t, nil)
	_, err := newTestGeocoder(srv.URL).Search(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveListingLocationFallsBackToPin(t *testing.T) {
	srv, queries := nominatimStub(t, map[string]string{"560001, India": bangaloreResult})
	g := newTestGeocoder(srv.URL)

	place, err := g.ResolveListingLocation(context.Background(), "Flat 4, Nowhere Lane", "560001")
	require.NoError(t, err)
	assert.Equal(t, "Bengaluru", place.City)
	assert.Equal(t, []string{"Flat 4, Nowhere Lane, 560001, India", "560001, India"}, *queries)
}

func TestResolveListingLocationNotFound(t *testing.T) {
	srv, _ := nominatimStub(t, nil)
	_, err := newTestGeocoder(srv.URL).ResolveListingLocation(context.Background(), "x", "999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(bangaloreResult))
	}))
	defer srv.Close()

	g := newTestGeocoder(srv.URL)
	g.retry.MaxAttempts = 2
	g.retry.BaseDelay = 0

	place, err := g.Search(context.Background(), "Bengaluru")
	require.NoError(t, err)
	assert.Equal(t, "Bengaluru", place.City)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestSearchDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	g := newTestGeocoder(srv.URL)
	g.retry.MaxAttempts = 3

	_, err := g.Search(context.Background(), "Bengaluru")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestPlaceLocator(t *testing.T) {
	srv, queries := nominatimStub(t, map[string]string{"560001, India": bangaloreResult})
	loc := NewPlaceLocator(newTestGeocoder(srv.URL), "560001")

	pos, err := loc.CurrentPosition(context.Background(), services.DefaultPositionOptions())
	require.NoError(t, err)
	assert.Equal(t, models.Position{Lat: 12.9716, Lng: 77.5946}, pos)
	assert.Equal(t, []string{"560001, India"}, *queries)

	_, err = NewPlaceLocator(newTestGeocoder(srv.URL), "Atlantis").CurrentPosition(context.Background(), services.PositionOptions{})
	assert.ErrorIs(t, err, services.ErrPositionUnavailable)
}
