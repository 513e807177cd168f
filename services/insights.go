package services

import (
	"fmt"
	"sort"
	"strings"

	"allrentr/models"
	"allrentr/utils"
)

const topClusterCount = 5

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises the catalogue, an optional nearby result and the
// clusters of the given mode.
func (s *InsightService) Generate(listings []*models.Listing, nearby *models.ProximityResult, mode models.ClusterMode) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByCity: make(map[string]int),
		ClusterMode:    mode,
	}

	report.TotalListings = len(listings)
	for _, l := range listings {
		if l.HasCoordinates() {
			report.WithCoordinates++
		}
	}
	for _, c := range ComputeClusters(listings, models.ClusterCity) {
		report.ListingsByCity[c.Key] = c.Count
	}

	if nearby != nil {
		report.NearbyCount = len(nearby.Hits)
		report.NearbySource = nearby.Source
		report.RadiusMeters = nearby.RadiusMeters
		report.Notice = nearby.Notice
		if len(nearby.Hits) > 0 {
			closest := nearby.Hits[0]
			report.Closest = &closest
		}
	}

	if mode != models.ClusterNone {
		clusters := ComputeClusters(listings, mode)
		if len(clusters) > topClusterCount {
			clusters = clusters[:topClusterCount]
		}
		report.TopClusters = clusters
	}

	s.logger.Debug("[insights] %d listings, %d with coordinates, %d nearby",
		report.TotalListings, report.WithCoordinates, report.NearbyCount)
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📍 LISTINGS NEAR YOU\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Approved listings      : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Printf("  With coordinates       : \033[1m%d\033[0m\n", r.WithCoordinates)
	fmt.Println()

	// Nearby
	if r.RadiusMeters > 0 {
		fmt.Printf("\033[1;33m  Nearby (%skm, %s)\033[0m\n", FormatKm(r.RadiusMeters), r.NearbySource)
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  Listings in range : \033[1;32m%d\033[0m\n", r.NearbyCount)
		if r.Closest != nil {
			fmt.Printf("  Closest           : %s (%.2fkm)\n",
				Truncate(r.Closest.Listing.ProductName, 32), r.Closest.DistanceMeters/1000)
		}
		if r.Notice != nil {
			fmt.Printf("  \033[33m%s\033[0m\n", r.Notice.Message)
		}
		fmt.Println()
	}

	// Clusters
	if len(r.TopClusters) > 0 {
		fmt.Printf("\033[1;33m  Top %s clusters\033[0m\n", r.ClusterMode)
		fmt.Printf("  %s\n", thin)
		for i, c := range r.TopClusters {
			fmt.Printf("  \033[1m%d.\033[0m %-36s \033[1;32m%d\033[0m\n", i+1, Truncate(c.Label, 34), c.Count)
		}
		fmt.Println()
	}

	// Listings by City
	fmt.Printf("\033[1;33m  Listings by City\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ListingsByCity) == 0 {
		fmt.Printf("  No location data\n")
	} else {
		// Sort cities by count descending
		var cities []keyCount
		for city, cnt := range r.ListingsByCity {
			cities = append(cities, keyCount{city, cnt})
		}
		sort.Slice(cities, func(i, j int) bool {
			if cities[i].count != cities[j].count {
				return cities[i].count > cities[j].count
			}
			return cities[i].key < cities[j].key
		})
		for _, c := range cities {
			bar := strings.Repeat("█", min(c.count, 40))
			fmt.Printf("  %-30s %s (%d)\n", Truncate(c.key, 28), bar, c.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

type keyCount struct {
	key   string
	count int
}

// FormatKm renders metres as kilometres with at most two decimals and no
// trailing zeros, e.g. 2500 → "2.5", 5000 → "5", 0 → "0".
func FormatKm(meters float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", meters/1000), "0"), ".")
}

// Truncate shortens s to max runes, ending in "..." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
