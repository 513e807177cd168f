package services

import (
	"sort"
	"strings"

	"allrentr/geo"
	"allrentr/models"
)

const (
	unknownCityKey = "Unknown"
	missingPinKey  = "—"
)

// ComputeClusters groups listings by mode. Pass the full catalogue, not a
// filtered view, so clusters reflect every listing. ClusterNone (or an
// unknown mode) yields no clusters.
func ComputeClusters(listings []*models.Listing, mode models.ClusterMode) []models.Cluster {
	var keyOf func(l *models.Listing) (string, bool)
	label := func(key string) string { return key }

	switch mode {
	case models.ClusterCity:
		keyOf = func(l *models.Listing) (string, bool) {
			if city := strings.TrimSpace(l.City); city != "" {
				return city, true
			}
			return unknownCityKey, true
		}
	case models.ClusterPin:
		keyOf = func(l *models.Listing) (string, bool) {
			if pin := strings.TrimSpace(l.PinCode); pin != "" {
				return pin, true
			}
			return missingPinKey, true
		}
		label = func(key string) string { return "PIN " + key }
	case models.ClusterGeo:
		keyOf = func(l *models.Listing) (string, bool) {
			lat, lng, ok := l.Coordinates()
			if !ok {
				return "", false
			}
			return geo.CellKey(lat, lng), true
		}
	default:
		return []models.Cluster{}
	}

	index := make(map[string]int)
	clusters := make([]models.Cluster, 0)
	for _, l := range listings {
		if l == nil {
			continue
		}
		key, ok := keyOf(l)
		if !ok {
			continue
		}
		i, exists := index[key]
		if !exists {
			i = len(clusters)
			index[key] = i
			clusters = append(clusters, models.Cluster{Key: key, Label: label(key)})
		}
		clusters[i].Items = append(clusters[i].Items, l)
		clusters[i].Count++
	}

	// Stable so equal-sized buckets keep first-seen order.
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})
	return clusters
}

// FindCluster returns the cluster with the given key.
func FindCluster(clusters []models.Cluster, key string) (models.Cluster, bool) {
	for _, c := range clusters {
		if c.Key == key {
			return c, true
		}
	}
	return models.Cluster{}, false
}
