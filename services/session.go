package services

import (
	"context"
	"sync"

	"allrentr/models"
	"allrentr/utils"
)

// NearbySession owns the view state of one client. Every change to origin,
// radius or catalogue starts a new resolution; a resolution that finishes
// after a newer one started is dropped.
type NearbySession struct {
	resolver *ProximityResolver
	locator  PositionProvider
	opts     PositionOptions
	logger   *utils.Logger

	mu       sync.Mutex
	state    models.ViewState
	listings []*models.Listing
	result   *models.ProximityResult
	gen      uint64
}

// NewNearbySession creates a session starting from the zero view state with
// the given default radius.
func NewNearbySession(resolver *ProximityResolver, locator PositionProvider, opts PositionOptions, radiusMeters float64, logger *utils.Logger) *NearbySession {
	return &NearbySession{
		resolver: resolver,
		locator:  locator,
		opts:     opts,
		logger:   logger,
		state:    models.ViewState{RadiusMeters: radiusMeters, ClusterMode: models.ClusterNone},
	}
}

// State returns a snapshot of the current view state.
func (s *NearbySession) State() models.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the latest applied nearby result, if any.
func (s *NearbySession) Result() *models.ProximityResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Update replaces the view state. Nearby inputs are not re-resolved; call
// Refresh afterwards if origin or radius changed.
func (s *NearbySession) Update(fn func(models.ViewState) models.ViewState) models.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	return s.state
}

// SetListings replaces the catalogue and re-resolves nearby results.
func (s *NearbySession) SetListings(ctx context.Context, listings []*models.Listing) {
	s.mu.Lock()
	s.listings = listings
	s.mu.Unlock()
	s.Refresh(ctx)
}

// SetRadius changes the radius and re-resolves.
func (s *NearbySession) SetRadius(ctx context.Context, radiusMeters float64) {
	s.Update(func(v models.ViewState) models.ViewState {
		v.RadiusMeters = radiusMeters
		return v
	})
	s.Refresh(ctx)
}

// EnableNearby acquires the current position and turns nearby mode on. On
// failure nearby mode is forced off and the returned notice explains why.
func (s *NearbySession) EnableNearby(ctx context.Context) (*models.Notice, error) {
	s.mu.Lock()
	s.state.Origin = nil
	s.result = nil
	s.gen++
	s.mu.Unlock()

	pos, err := AcquirePosition(ctx, s.locator, s.opts)
	if err != nil {
		s.Update(func(v models.ViewState) models.ViewState { return v.WithoutNearby() })
		s.logger.Warn("[nearby] location unavailable, nearby mode disabled: %v", err)
		return LocationNotice(err), err
	}

	s.Update(func(v models.ViewState) models.ViewState { return v.WithNearby(pos, v.RadiusMeters) })
	s.Refresh(ctx)
	return &models.Notice{
		Kind:    models.NoticeLocationEnabled,
		Title:   "Location enabled",
		Message: "Showing listings near you",
	}, nil
}

// DisableNearby turns nearby mode off and clears its result.
func (s *NearbySession) DisableNearby() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.WithoutNearby()
	s.result = nil
	s.gen++
}

// SelectCluster drills into the cluster with key under the current mode.
func (s *NearbySession) SelectCluster(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := DrillDown(s.listings, s.state, key)
	if ok {
		s.state = next
		s.result = nil
		s.gen++
	}
	return ok
}

// Refresh resolves nearby listings for the current state. It reports
// whether its result was applied.
func (s *NearbySession) Refresh(ctx context.Context) bool {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	state := s.state
	listings := s.listings
	s.mu.Unlock()

	if !state.NearbyEnabled || state.Origin == nil {
		s.mu.Lock()
		if s.gen == gen {
			s.result = nil
		}
		s.mu.Unlock()
		return false
	}

	result := s.resolver.Resolve(ctx, listings, state.Origin.Lat, state.Origin.Lng, state.RadiusMeters)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		s.logger.Debug("[nearby] dropping stale result for radius %.0fm", state.RadiusMeters)
		return false
	}
	s.result = result
	return true
}

// View resolves the current display set.
func (s *NearbySession) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ResolveView(s.listings, s.result, s.state)
}
