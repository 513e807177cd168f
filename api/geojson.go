package api

import (
	"allrentr/geo"
	"allrentr/models"
)

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single GeoJSON feature.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry is a GeoJSON point.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lng, lat]
}

// clustersToGeoJSON renders geo-grid clusters as points at their cell
// centres. Clusters whose key is not a grid cell are skipped.
func clustersToGeoJSON(clusters []models.Cluster) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(clusters))}
	for _, c := range clusters {
		lat, lng, err := geo.CellCenter(c.Key)
		if err != nil {
			continue
		}
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{lng, lat},
			},
			Properties: map[string]interface{}{
				"key":   c.Key,
				"label": c.Label,
				"count": c.Count,
			},
		})
	}
	return fc
}
