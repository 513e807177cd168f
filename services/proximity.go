package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"allrentr/geo"
	"allrentr/models"
	"allrentr/storage"
	"allrentr/utils"
)

// ProximityResolver finds listings within a radius of an origin. It prefers
// the server-side geospatial query and falls back to scanning the supplied
// listings with Haversine when that query fails or finds nothing.
type ProximityResolver struct {
	querier storage.NearbyQuerier
	fetcher storage.RecordFetcher
	logger  *utils.Logger

	// suggest maps the closest distance to a radius tier for empty-state
	// notices. Nil disables the suggestion.
	suggest func(distance float64) float64
}

// NewProximityResolver creates a resolver. querier and fetcher may be nil, in
// which case every resolution takes the fallback path.
func NewProximityResolver(querier storage.NearbyQuerier, fetcher storage.RecordFetcher, logger *utils.Logger) *ProximityResolver {
	return &ProximityResolver{querier: querier, fetcher: fetcher, logger: logger}
}

// WithRadiusSuggestion sets the tier lookup used in "none within radius"
// notices and returns the resolver.
func (r *ProximityResolver) WithRadiusSuggestion(fn func(distance float64) float64) *ProximityResolver {
	r.suggest = fn
	return r
}

// Resolve returns the listings within radiusMeters of the origin, nearest
// first. It never fails: query errors are logged and trigger the fallback,
// and an empty outcome carries a Notice explaining why.
func (r *ProximityResolver) Resolve(ctx context.Context, listings []*models.Listing, originLat, originLng, radiusMeters float64) *models.ProximityResult {
	result := &models.ProximityResult{
		Origin:       models.Position{Lat: originLat, Lng: originLng},
		RadiusMeters: radiusMeters,
		Hits:         []models.NearbyHit{},
	}

	if hits, ok := r.tryPrimary(ctx, originLat, originLng, radiusMeters); ok {
		result.Source = models.SourcePrimary
		result.Hits = hits
		r.logger.Debug("[nearby] geospatial query returned %d listings within %.0fm", len(hits), radiusMeters)
		return result
	}

	hits, notice := ComputeFallback(listings, originLat, originLng, radiusMeters)
	result.Source = models.SourceFallback
	result.Hits = hits
	if notice != nil {
		if notice.ClosestMeters != nil && r.suggest != nil {
			notice.SuggestedRadius = r.suggest(*notice.ClosestMeters)
		}
		result.Notice = notice
		r.logger.Info("[nearby] %s: %s", notice.Title, notice.Message)
	} else {
		r.logger.Debug("[nearby] fallback found %d listings within %.0fm", len(hits), radiusMeters)
	}
	return result
}

// tryPrimary runs the geospatial query and hydrates its rows. ok is false
// when the query is unavailable, fails, or yields nothing usable.
func (r *ProximityResolver) tryPrimary(ctx context.Context, lat, lng, radiusMeters float64) ([]models.NearbyHit, bool) {
	if r.querier == nil || r.fetcher == nil {
		return nil, false
	}

	rows, err := r.querier.FindNearby(ctx, lat, lng, radiusMeters)
	if err != nil {
		r.logger.Warn("[nearby] geospatial query failed, using client-side fallback: %v", err)
		return nil, false
	}
	if len(rows) == 0 {
		r.logger.Debug("[nearby] geospatial query returned no rows, using client-side fallback")
		return nil, false
	}

	seen := utils.NewIDSet()
	ids := make([]string, 0, len(rows))
	distance := make(map[string]float64, len(rows))
	for _, row := range rows {
		if row.DistanceMeters > radiusMeters || !seen.Add(row.ID) {
			continue
		}
		ids = append(ids, row.ID)
		distance[row.ID] = row.DistanceMeters
	}
	if len(ids) == 0 {
		return nil, false
	}

	records, err := r.fetcher.GetByIDs(ctx, ids)
	if err != nil {
		r.logger.Warn("[nearby] hydrating %d listings failed, using client-side fallback: %v", len(ids), err)
		return nil, false
	}

	byID := make(map[string]*models.Listing, len(records))
	for _, l := range records {
		byID[l.ID] = l
	}

	hits := make([]models.NearbyHit, 0, len(ids))
	for _, id := range ids {
		l, ok := byID[id]
		if !ok {
			continue
		}
		hits = append(hits, models.NearbyHit{Listing: l, DistanceMeters: distance[id]})
	}
	if len(hits) == 0 {
		return nil, false
	}
	return hits, true
}

// ComputeFallback scans listings for those with valid coordinates within
// radiusMeters and sorts them by distance. Repeated ids count once. The notice is non-nil only when
// nothing qualifies.
func ComputeFallback(listings []*models.Listing, originLat, originLng, radiusMeters float64) ([]models.NearbyHit, *models.Notice) {
	type candidate struct {
		listing  *models.Listing
		distance float64
	}

	seen := utils.NewIDSet()
	candidates := make([]candidate, 0, len(listings))
	for _, l := range listings {
		lat, lng, ok := l.Coordinates()
		if !ok || !seen.Add(l.ID) {
			continue
		}
		candidates = append(candidates, candidate{l, geo.Haversine(originLat, originLng, lat, lng)})
	}

	if len(candidates) == 0 {
		return []models.NearbyHit{}, &models.Notice{
			Kind:    models.NoticeNoCoordinates,
			Title:   "No listings with location",
			Message: "None of the listings have location data yet, so nearby search cannot be used.",
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	hits := make([]models.NearbyHit, 0, len(candidates))
	for _, c := range candidates {
		if c.distance > radiusMeters {
			break
		}
		hits = append(hits, models.NearbyHit{Listing: c.listing, DistanceMeters: c.distance})
	}

	if len(hits) == 0 {
		closest := candidates[0].distance
		return hits, &models.Notice{
			Kind:  models.NoticeNoneWithinRadius,
			Title: "No listings within radius",
			Message: fmt.Sprintf("No listings found within %skm. Closest listing is %.1fkm away. Try increasing the radius.",
				strconv.FormatFloat(radiusMeters/1000, 'f', -1, 64), closest/1000),
			ClosestMeters: &closest,
		}
	}
	return hits, nil
}
