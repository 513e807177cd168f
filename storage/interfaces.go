package storage

import (
	"context"

	"allrentr/models"
)

// ListingReader loads the approved catalogue.
type ListingReader interface {
	FetchApproved(ctx context.Context) ([]*models.Listing, error)
}

// NearbyQuerier is the server-side geospatial query. Rows come back ordered
// by ascending distance; an empty slice is a legitimate answer.
type NearbyQuerier interface {
	FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]models.NearbyRow, error)
}

// RecordFetcher hydrates listing ids into full records. Order is unspecified.
type RecordFetcher interface {
	GetByIDs(ctx context.Context, ids []string) ([]*models.Listing, error)
}

// ListingWriter is the interface any storage backend must satisfy.
type ListingWriter interface {
	Write(ctx context.Context, listings []*models.Listing) error
	Close() error
}

// LocationUpdater stores geocoding results for listings that lack them.
type LocationUpdater interface {
	FetchMissingLocation(ctx context.Context, limit int) ([]*models.Listing, error)
	UpdateLocation(ctx context.Context, id string, place models.Place) error
}
