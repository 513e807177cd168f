package services

import "allrentr/models"

// ViewKind tells a client whether a View holds listings or clusters.
type ViewKind string

const (
	ViewListings ViewKind = "listings"
	ViewClusters ViewKind = "clusters"
)

// View is the resolved display set for a ViewState.
type View struct {
	Kind        ViewKind           `json:"kind"`
	Listings    []*models.Listing  `json:"listings,omitempty"`
	Distances   map[string]float64 `json:"distances,omitempty"`
	Clusters    []models.Cluster   `json:"clusters,omitempty"`
	ClusterMode models.ClusterMode `json:"cluster_mode,omitempty"`
	FromCluster string             `json:"from_cluster,omitempty"`
	Nearby      bool               `json:"nearby"`
	Notice      *models.Notice     `json:"notice,omitempty"`
}

// ResolveView picks the display set for state. Precedence, highest first:
// a drilled-down cluster's items (filtered), the cluster list itself, the
// nearby result (filtered, distance order), then the whole catalogue
// (filtered). nearby is the latest ProximityResult for state's origin and
// radius; it is ignored unless nearby mode is on.
func ResolveView(all []*models.Listing, nearby *models.ProximityResult, state models.ViewState) View {
	switch {
	case state.HasSelection():
		items := FilterListings(state.SelectedClusterItems, state.Filters)
		SortListings(items, state.Filters.SortBy)
		return View{Kind: ViewListings, Listings: items, FromCluster: state.SelectedClusterKey}

	case state.ClusterMode != "" && state.ClusterMode != models.ClusterNone:
		return View{
			Kind:        ViewClusters,
			Clusters:    ComputeClusters(all, state.ClusterMode),
			ClusterMode: state.ClusterMode,
		}

	case state.NearbyEnabled:
		v := View{Kind: ViewListings, Nearby: true, Listings: []*models.Listing{}, Distances: map[string]float64{}}
		if nearby == nil {
			return v
		}
		v.Notice = nearby.Notice
		for _, h := range nearby.Hits {
			if MatchesFilters(h.Listing, state.Filters) {
				v.Listings = append(v.Listings, h.Listing)
				v.Distances[h.Listing.ID] = h.DistanceMeters
			}
		}
		return v

	default:
		items := FilterListings(all, state.Filters)
		SortListings(items, state.Filters.SortBy)
		return View{Kind: ViewListings, Listings: items}
	}
}

// DrillDown selects the cluster with key from the clusters computed for
// state's mode and returns the drilled-down state. ok is false when no such
// cluster exists.
func DrillDown(all []*models.Listing, state models.ViewState, key string) (models.ViewState, bool) {
	c, ok := FindCluster(ComputeClusters(all, state.ClusterMode), key)
	if !ok {
		return state, false
	}
	return state.SelectCluster(c), true
}
