package geolocate

import (
	"context"
	"fmt"

	"allrentr/models"
	"allrentr/services"
)

// StaticLocator reports a fixed position, typically ORIGIN_LAT/ORIGIN_LNG
// or a --lat/--lng pair.
type StaticLocator struct {
	pos models.Position
}

// NewStaticLocator creates a StaticLocator for lat, lng.
func NewStaticLocator(lat, lng float64) *StaticLocator {
	return &StaticLocator{pos: models.Position{Lat: lat, Lng: lng}}
}

func (s *StaticLocator) CurrentPosition(ctx context.Context, _ services.PositionOptions) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, err
	}
	if !s.pos.Valid() {
		return models.Position{}, fmt.Errorf("%w: configured origin (%v, %v) is out of range",
			services.ErrPositionUnavailable, s.pos.Lat, s.pos.Lng)
	}
	return s.pos, nil
}

// PlaceLocator resolves the origin from a place name or PIN code through
// the geocoder, for clients without device location.
type PlaceLocator struct {
	geocoder *Geocoder
	query    string
}

// NewPlaceLocator creates a PlaceLocator for query. A bare six-digit PIN is
// expanded to "PIN, India".
func NewPlaceLocator(geocoder *Geocoder, query string) *PlaceLocator {
	if services.ValidPinCode(query) {
		query = ListingQueries("", query)[0]
	}
	return &PlaceLocator{geocoder: geocoder, query: query}
}

func (p *PlaceLocator) CurrentPosition(ctx context.Context, _ services.PositionOptions) (models.Position, error) {
	place, err := p.geocoder.Search(ctx, p.query)
	if err != nil {
		return models.Position{}, fmt.Errorf("%w: %v", services.ErrPositionUnavailable, err)
	}
	return models.Position{Lat: place.Lat, Lng: place.Lng}, nil
}
