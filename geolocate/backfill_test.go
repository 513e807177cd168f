package geolocate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allrentr/models"
	"allrentr/utils"
)

type memoryUpdater struct {
	mu      sync.Mutex
	missing []*models.Listing
	updated map[string]models.Place
}

func (m *memoryUpdater) FetchMissingLocation(ctx context.Context, limit int) ([]*models.Listing, error) {
	if limit > 0 && limit < len(m.missing) {
		return m.missing[:limit], nil
	}
	return m.missing, nil
}

func (m *memoryUpdater) UpdateLocation(ctx context.Context, id string, place models.Place) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated[id] = place
	return nil
}

func TestBackfillerRun(t *testing.T) {
	srv, _ := nominatimStub(t, map[string]string{"560001, India": bangaloreResult})
	store := &memoryUpdater{
		missing: []*models.Listing{
			{ID: "found", Address: "Unknown street", PinCode: "560001"},
			{ID: "lost", Address: "Nowhere", PinCode: "999999"},
			{ID: "bad-pin", PinCode: "56"},
			{ID: "empty"},
		},
		updated: make(map[string]models.Place),
	}

	b := NewBackfiller(store, newTestGeocoder(srv.URL), 2, 0, utils.NewNopLogger())
	stats, err := b.Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, BackfillStats{Scanned: 4, Located: 1, NotFound: 1, Skipped: 2}, stats)
	require.Contains(t, store.updated, "found")
	assert.Equal(t, "tdr1v9qtj", store.updated["found"].Geohash)
	assert.Equal(t, "Karnataka", store.updated["found"].State)
}
