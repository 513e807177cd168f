package models

import (
	"math"
	"time"
)

// Listing is an approved marketplace listing as stored in the listings table.
// Latitude and Longitude are nil when the listing was never geocoded.
type Listing struct {
	ID            string    `json:"id"`
	OwnerUserID   string    `json:"owner_user_id,omitempty"`
	ProductName   string    `json:"product_name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	RentPrice     float64   `json:"rent_price"`
	Address       string    `json:"address,omitempty"`
	PinCode       string    `json:"pin_code"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	Locality      string    `json:"locality,omitempty"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	Geohash       string    `json:"geohash,omitempty"`
	Views         int       `json:"views"`
	Rating        float64   `json:"rating"`
	RatingCount   int       `json:"rating_count"`
	ListingStatus string    `json:"listing_status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Coordinates returns the listing position. ok is false when either
// coordinate is missing or NaN.
func (l *Listing) Coordinates() (lat, lng float64, ok bool) {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return 0, 0, false
	}
	lat, lng = *l.Latitude, *l.Longitude
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return 0, 0, false
	}
	return lat, lng, true
}

// HasCoordinates reports whether the listing can take part in geo operations.
func (l *Listing) HasCoordinates() bool {
	_, _, ok := l.Coordinates()
	return ok
}

// Position is a WGS84 coordinate pair in degrees.
type Position struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// Valid reports whether the position is a usable origin.
func (p Position) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Place is a geocoding result for a free-form address or PIN code.
type Place struct {
	Lat      float64
	Lng      float64
	City     string
	State    string
	Locality string
	Geohash  string
}

// InsightReport summarises a catalogue together with the active nearby and
// cluster views.
type InsightReport struct {
	TotalListings   int
	WithCoordinates int
	NearbyCount     int
	NearbySource    ResultSource
	Closest         *NearbyHit
	RadiusMeters    float64
	ClusterMode     ClusterMode
	TopClusters     []Cluster
	ListingsByCity  map[string]int
	Notice          *Notice
}
