package models

import (
	"fmt"
	"strings"
)

// SortOrder orders a non-nearby listing view. The empty value keeps the
// source order.
type SortOrder string

const (
	SortSource       SortOrder = ""
	SortNewest       SortOrder = "newest"
	SortPriceAsc     SortOrder = "price_asc"
	SortPriceDesc    SortOrder = "price_desc"
	SortMostReviewed SortOrder = "most_reviewed"
	SortTopRated     SortOrder = "top_rated"
)

// SortOrders lists the accepted non-empty sort orders.
var SortOrders = []SortOrder{SortNewest, SortPriceAsc, SortPriceDesc, SortMostReviewed, SortTopRated}

// ParseSortOrder validates a sort order name.
func ParseSortOrder(s string) (SortOrder, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortSource, nil
	}
	for _, o := range SortOrders {
		if string(o) == s {
			return o, nil
		}
	}
	return SortSource, fmt.Errorf("unknown sort order %q", s)
}

// Filters are the base filters shared by every view. Zero values disable a
// filter; MaxPrice 0 means no upper bound.
type Filters struct {
	Search   string    `json:"search"`
	PinCode  string    `json:"pin_code"`
	Category string    `json:"category"`
	MinPrice float64   `json:"min_price"`
	MaxPrice float64   `json:"max_price"`
	SortBy   SortOrder `json:"sort_by"`
}

// IsZero reports whether no filter is active.
func (f Filters) IsZero() bool {
	return f == (Filters{})
}

// ViewState is the complete, immutable input of view resolution. Methods
// return modified copies.
type ViewState struct {
	Filters              Filters
	NearbyEnabled        bool
	Origin               *Position
	RadiusMeters         float64
	ClusterMode          ClusterMode
	SelectedClusterKey   string
	SelectedClusterItems []*Listing
}

// HasSelection reports whether a cluster drill-down is active.
func (s ViewState) HasSelection() bool {
	return len(s.SelectedClusterItems) > 0
}

// WithFilters replaces the base filters.
func (s ViewState) WithFilters(f Filters) ViewState {
	s.Filters = f
	return s
}

// WithClusterMode switches the grouping mode.
func (s ViewState) WithClusterMode(m ClusterMode) ViewState {
	s.ClusterMode = m
	return s
}

// WithNearby enables nearby mode around origin with the given radius.
func (s ViewState) WithNearby(origin Position, radiusMeters float64) ViewState {
	s.NearbyEnabled = true
	s.Origin = &origin
	s.RadiusMeters = radiusMeters
	return s
}

// WithoutNearby disables nearby mode, keeping the last origin and radius.
func (s ViewState) WithoutNearby() ViewState {
	s.NearbyEnabled = false
	return s
}

// SelectCluster drills down into c: the view shows exactly c's items, the
// cluster mode returns to none, nearby mode is disabled and every base
// filter is cleared.
func (s ViewState) SelectCluster(c Cluster) ViewState {
	items := make([]*Listing, len(c.Items))
	copy(items, c.Items)
	s.SelectedClusterKey = c.Key
	s.SelectedClusterItems = items
	s.ClusterMode = ClusterNone
	s.NearbyEnabled = false
	s.Filters = Filters{}
	return s
}
