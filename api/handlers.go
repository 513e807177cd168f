package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"allrentr/models"
	"allrentr/services"
)

const clusterPreviewSize = 3

type clusterSummary struct {
	Key     string            `json:"key"`
	Label   string            `json:"label"`
	Count   int               `json:"count"`
	Preview []*models.Listing `json:"preview"`
}

func summarise(clusters []models.Cluster) []clusterSummary {
	out := make([]clusterSummary, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, clusterSummary{Key: c.Key, Label: c.Label, Count: c.Count, Preview: c.Preview(clusterPreviewSize)})
	}
	return out
}

type viewResponse struct {
	Kind        services.ViewKind   `json:"kind"`
	Listings    []*models.Listing   `json:"listings"`
	Distances   map[string]float64  `json:"distances,omitempty"`
	Clusters    []clusterSummary    `json:"clusters,omitempty"`
	ClusterMode models.ClusterMode  `json:"cluster_mode,omitempty"`
	FromCluster string              `json:"from_cluster,omitempty"`
	Nearby      bool                `json:"nearby"`
	Source      models.ResultSource `json:"source,omitempty"`
	Notice      *models.Notice      `json:"notice,omitempty"`
	Count       int                 `json:"count"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) storeFailure(c *gin.Context, err error) {
	s.logger.Error("[api] Loading listings failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load listings"})
}

func (s *Server) handleFilters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"radius_tiers":  s.options.RadiusTiers,
		"categories":    s.options.Categories,
		"min_price":     s.options.MinPrice,
		"max_price":     s.options.MaxPrice,
		"cluster_modes": models.ClusterModes,
		"sort_orders":   models.SortOrders,
	})
}

// queryFloat parses an optional float parameter; missing yields def.
func queryFloat(c *gin.Context, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return f, nil
}

func (s *Server) parseFilters(c *gin.Context) (models.Filters, error) {
	f := models.Filters{
		Search:   strings.TrimSpace(c.Query("search")),
		PinCode:  strings.TrimSpace(c.Query("pin")),
		Category: strings.ToLower(strings.TrimSpace(c.Query("category"))),
	}
	if f.Category != "" && !s.options.HasCategory(f.Category) {
		return f, fmt.Errorf("unknown category %q", f.Category)
	}

	var err error
	if f.MinPrice, err = queryFloat(c, "min_price", 0); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryFloat(c, "max_price", 0); err != nil {
		return f, err
	}
	if f.MinPrice < 0 || f.MaxPrice < 0 || (f.MaxPrice > 0 && f.MinPrice > f.MaxPrice) {
		return f, fmt.Errorf("invalid price range %v-%v", f.MinPrice, f.MaxPrice)
	}
	if f.SortBy, err = models.ParseSortOrder(c.Query("sort")); err != nil {
		return f, err
	}
	return f, nil
}

// parseOrigin reads lat, lng and radius. Radius defaults to the server's
// default and must be positive.
func (s *Server) parseOrigin(c *gin.Context) (models.Position, float64, error) {
	if c.Query("lat") == "" || c.Query("lng") == "" {
		return models.Position{}, 0, fmt.Errorf("lat and lng are required")
	}
	lat, err := queryFloat(c, "lat", 0)
	if err != nil {
		return models.Position{}, 0, err
	}
	lng, err := queryFloat(c, "lng", 0)
	if err != nil {
		return models.Position{}, 0, err
	}
	pos := models.Position{Lat: lat, Lng: lng}
	if !pos.Valid() {
		return models.Position{}, 0, fmt.Errorf("coordinates (%v, %v) out of range", lat, lng)
	}

	radius, err := queryFloat(c, "radius", s.defaultRadius)
	if err != nil {
		return models.Position{}, 0, err
	}
	if radius <= 0 {
		return models.Position{}, 0, fmt.Errorf("radius must be positive")
	}
	return pos, radius, nil
}

// handleListings resolves the combined view: cluster_key drills into a
// cluster of cluster_mode; otherwise cluster_mode groups, nearby=true
// narrows to the radius, and the base filters apply throughout.
func (s *Server) handleListings(c *gin.Context) {
	filters, err := s.parseFilters(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	mode, err := models.ParseClusterMode(c.Query("cluster_mode"))
	if err != nil {
		badRequest(c, err)
		return
	}

	state := models.ViewState{ClusterMode: mode, RadiusMeters: s.defaultRadius}
	nearby, _ := strconv.ParseBool(c.DefaultQuery("nearby", "false"))
	if nearby {
		origin, radius, err := s.parseOrigin(c)
		if err != nil {
			badRequest(c, err)
			return
		}
		state = state.WithNearby(origin, radius)
	}

	listings, err := s.loadListings(c.Request.Context())
	if err != nil {
		s.storeFailure(c, err)
		return
	}

	if key := c.Query("cluster_key"); key != "" {
		if mode == models.ClusterNone {
			badRequest(c, fmt.Errorf("cluster_key requires cluster_mode"))
			return
		}
		var ok bool
		if state, ok = services.DrillDown(listings, state, key); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no %s cluster %q", mode, key)})
			return
		}
	}
	// Filters sent alongside a drill-down narrow the selected items.
	state = state.WithFilters(filters)

	var result *models.ProximityResult
	if state.NearbyEnabled && !state.HasSelection() && state.ClusterMode == models.ClusterNone {
		result = s.resolver.Resolve(c.Request.Context(), listings, state.Origin.Lat, state.Origin.Lng, state.RadiusMeters)
	}

	v := services.ResolveView(listings, result, state)
	resp := viewResponse{
		Kind:        v.Kind,
		Listings:    v.Listings,
		Distances:   v.Distances,
		ClusterMode: v.ClusterMode,
		FromCluster: v.FromCluster,
		Nearby:      v.Nearby,
		Notice:      v.Notice,
	}
	if v.Kind == services.ViewClusters {
		resp.Clusters = summarise(v.Clusters)
		resp.Count = len(v.Clusters)
	} else {
		if resp.Listings == nil {
			resp.Listings = []*models.Listing{}
		}
		resp.Count = len(v.Listings)
	}
	if result != nil {
		resp.Source = result.Source
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleNearby(c *gin.Context) {
	origin, radius, err := s.parseOrigin(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	listings, err := s.loadListings(c.Request.Context())
	if err != nil {
		s.storeFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, s.resolver.Resolve(c.Request.Context(), listings, origin.Lat, origin.Lng, radius))
}

func (s *Server) handleClusters(c *gin.Context) {
	mode, err := models.ParseClusterMode(c.Query("mode"))
	if err != nil {
		badRequest(c, err)
		return
	}
	listings, err := s.loadListings(c.Request.Context())
	if err != nil {
		s.storeFailure(c, err)
		return
	}
	clusters := services.ComputeClusters(listings, mode)
	c.JSON(http.StatusOK, gin.H{"mode": mode, "count": len(clusters), "clusters": summarise(clusters)})
}

func (s *Server) handleClusterItems(c *gin.Context) {
	mode, err := models.ParseClusterMode(c.Param("mode"))
	if err != nil {
		badRequest(c, err)
		return
	}
	listings, err := s.loadListings(c.Request.Context())
	if err != nil {
		s.storeFailure(c, err)
		return
	}

	key := c.Param("key")
	cluster, ok := services.FindCluster(services.ComputeClusters(listings, mode), key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no %s cluster %q", mode, key)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key":   cluster.Key,
		"label": cluster.Label,
		"count": cluster.Count,
		"items": cluster.Items,
	})
}

func (s *Server) handleGeoJSON(c *gin.Context) {
	listings, err := s.loadListings(c.Request.Context())
	if err != nil {
		s.storeFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, clustersToGeoJSON(services.ComputeClusters(listings, models.ClusterGeo)))
}
