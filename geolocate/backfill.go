package geolocate

import (
	"context"
	"errors"
	"sync"

	"allrentr/services"
	"allrentr/storage"
	"allrentr/utils"
)

// BackfillStats summarises one backfill run.
type BackfillStats struct {
	Scanned  int
	Located  int
	NotFound int
	Skipped  int
	Failed   int
}

// Backfiller geocodes listings that were stored without coordinates.
type Backfiller struct {
	store    storage.LocationUpdater
	geocoder *Geocoder
	pool     *utils.WorkerPool
	logger   *utils.Logger
}

// NewBackfiller creates a Backfiller. Requests are spaced by rateLimitMs
// (Nominatim allows one per second) across at most maxWorkers goroutines.
func NewBackfiller(store storage.LocationUpdater, geocoder *Geocoder, maxWorkers, rateLimitMs int, logger *utils.Logger) *Backfiller {
	return &Backfiller{
		store:    store,
		geocoder: geocoder,
		pool:     utils.NewWorkerPool(maxWorkers, rateLimitMs),
		logger:   logger,
	}
}

// Run geocodes up to limit listings and writes the results back.
func (b *Backfiller) Run(ctx context.Context, limit int) (BackfillStats, error) {
	listings, err := b.store.FetchMissingLocation(ctx, limit)
	if err != nil {
		return BackfillStats{}, err
	}
	b.logger.Info("[backfill] %d listings without coordinates", len(listings))

	var (
		mu    sync.Mutex
		stats = BackfillStats{Scanned: len(listings)}
	)
	count := func(f func(*BackfillStats)) {
		mu.Lock()
		f(&stats)
		mu.Unlock()
	}

	for _, l := range listings {
		if ctx.Err() != nil {
			break
		}
		if l.PinCode != "" && !services.ValidPinCode(l.PinCode) {
			b.logger.Warn("[backfill] %s: invalid PIN code %q", l.ID, l.PinCode)
			count(func(s *BackfillStats) { s.Skipped++ })
			continue
		}
		if l.PinCode == "" && l.Address == "" {
			count(func(s *BackfillStats) { s.Skipped++ })
			continue
		}

		l := l
		b.pool.Submit(func() {
			place, err := b.geocoder.ResolveListingLocation(ctx, l.Address, l.PinCode)
			switch {
			case errors.Is(err, ErrNotFound):
				b.logger.Warn("[backfill] %s: location not found, refine address or PIN code", l.ID)
				count(func(s *BackfillStats) { s.NotFound++ })
				return
			case err != nil:
				b.logger.Error("[backfill] %s: %v", l.ID, err)
				count(func(s *BackfillStats) { s.Failed++ })
				return
			}

			if err := b.store.UpdateLocation(ctx, l.ID, *place); err != nil {
				b.logger.Error("[backfill] %s: %v", l.ID, err)
				count(func(s *BackfillStats) { s.Failed++ })
				return
			}
			count(func(s *BackfillStats) { s.Located++ })
		})
	}
	b.pool.Wait()

	b.logger.Info("[backfill] located %d, not found %d, skipped %d, failed %d",
		stats.Located, stats.NotFound, stats.Skipped, stats.Failed)
	return stats, ctx.Err()
}
