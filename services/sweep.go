package services

import (
	"context"
	"sort"
	"sync"

	"allrentr/models"
	"allrentr/utils"
)

// TierCount is the number of listings found within one radius tier.
type TierCount struct {
	RadiusMeters float64
	Count        int
	Source       models.ResultSource
}

// SweepRadii resolves every tier around the origin on a bounded worker
// pool and returns the counts ordered by radius.
func SweepRadii(ctx context.Context, resolver *ProximityResolver, listings []*models.Listing, origin models.Position, tiers []float64, maxWorkers int) []TierCount {
	pool := utils.NewWorkerPool(maxWorkers, 0)

	var mu sync.Mutex
	counts := make([]TierCount, 0, len(tiers))
	for _, radius := range tiers {
		radius := radius
		pool.Submit(func() {
			res := resolver.Resolve(ctx, listings, origin.Lat, origin.Lng, radius)
			mu.Lock()
			counts = append(counts, TierCount{RadiusMeters: radius, Count: len(res.Hits), Source: res.Source})
			mu.Unlock()
		})
	}
	pool.Wait()

	sort.Slice(counts, func(i, j int) bool { return counts[i].RadiusMeters < counts[j].RadiusMeters })
	return counts
}
