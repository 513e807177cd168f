package models

// NearbyRow is one row returned by the geospatial query: a listing id and its
// precomputed distance from the query origin.
type NearbyRow struct {
	ID             string  `json:"id"`
	DistanceMeters float64 `json:"distance_meters"`
}

// NearbyHit pairs a listing with its distance from the origin.
type NearbyHit struct {
	Listing        *Listing `json:"listing"`
	DistanceMeters float64  `json:"distance_meters"`
}

// ResultSource records which path produced a ProximityResult.
type ResultSource string

const (
	SourceNone     ResultSource = ""
	SourcePrimary  ResultSource = "geospatial_query"
	SourceFallback ResultSource = "client_scan"
)

// ProximityResult is the ordered output of a nearby resolution. Hits are
// sorted ascending by distance and never exceed RadiusMeters.
type ProximityResult struct {
	Origin       Position     `json:"origin"`
	RadiusMeters float64      `json:"radius_meters"`
	Source       ResultSource `json:"source"`
	Hits         []NearbyHit  `json:"hits"`
	Notice       *Notice      `json:"notice,omitempty"`
}

// NoticeKind classifies informational and error messages surfaced to users.
type NoticeKind string

const (
	NoticeNoCoordinates       NoticeKind = "no_coordinates"
	NoticeNoneWithinRadius    NoticeKind = "none_within_radius"
	NoticeLocationUnavailable NoticeKind = "location_unavailable"
	NoticeLocationEnabled     NoticeKind = "location_enabled"
)

// Notice is a user-facing message. Only NoticeLocationUnavailable is an
// error; the others are informational.
type Notice struct {
	Kind            NoticeKind `json:"kind"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	ClosestMeters   *float64   `json:"closest_meters,omitempty"`
	SuggestedRadius float64    `json:"suggested_radius,omitempty"`
	Destructive     bool       `json:"destructive,omitempty"`
}
