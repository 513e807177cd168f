// Package geo holds the spherical geometry used by the nearby and clustering
// code: great-circle distance, the fixed 0.01 degree grid and geohashes.
package geo

import (
	"fmt"
	"math"

	"github.com/mmcloughlin/geohash"
)

// EarthRadiusMeters is the mean Earth radius used by Haversine.
const EarthRadiusMeters = 6371000

// GridStep is the geo-cluster cell size in degrees. Cells are ~1.1 km tall
// everywhere and narrower east-west away from the equator.
const GridStep = 0.01

// GeohashPrecision is the precision stored alongside geocoded listings.
const GeohashPrecision = 9

func toRad(d float64) float64 {
	return d * math.Pi / 180
}

// Haversine returns the great-circle distance in metres between two points
// given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// roundHalfUp rounds to the nearest integer with ties toward +Inf.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// Bucket snaps a coordinate to the grid.
func Bucket(v float64) float64 {
	return roundHalfUp(v*100) / 100
}

// CellKey returns the grid cell key "lat,lng" with two decimals. Adding 0
// turns a negative zero bucket into "0.00".
func CellKey(lat, lng float64) string {
	return fmt.Sprintf("%.2f,%.2f", Bucket(lat)+0, Bucket(lng)+0)
}

// CellCenter parses a key produced by CellKey back into its centre.
func CellCenter(key string) (lat, lng float64, err error) {
	if _, err := fmt.Sscanf(key, "%f,%f", &lat, &lng); err != nil {
		return 0, 0, fmt.Errorf("geo: parse cell key %q: %w", key, err)
	}
	return lat, lng, nil
}

// Geohash encodes a position at GeohashPrecision.
func Geohash(lat, lng float64) string {
	return geohash.EncodeWithPrecision(lat, lng, GeohashPrecision)
}
