package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"allrentr/api"
	"allrentr/geolocate"
	"allrentr/models"
	"allrentr/services"
	"allrentr/storage"
	"allrentr/utils"
)

var (
	nearbyLat, nearbyLng, nearbyRadius      float64
	nearbyLocate, nearbySweep               bool
	nearbyPlace                             string
	nearbySearch, nearbyPin, nearbyCategory string

	clusterMode, clusterKey string
	csvPath                 string
	backfillLimit           int
)

// csvFromConfig is what a bare --csv parses to.
const csvFromConfig = "@config"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List approved listings within a radius of a location",
	Long: `List approved listings within a radius, nearest first.

The origin comes from --lat/--lng, --place (a PIN code or place name, geocoded),
--locate (device location through headless Chrome), or ORIGIN_LAT/ORIGIN_LNG.`,
	Args: cobra.NoArgs,
	RunE: runNearby,
}

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Group approved listings by city, PIN code or map area",
	Args:  cobra.NoArgs,
	RunE:  runClusters,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Geocode listings that have no coordinates",
	Args:  cobra.NoArgs,
	RunE:  runBackfill,
}

var importCmd = &cobra.Command{
	Use:   "import <listings.json>",
	Short: "Clean and store listings from a JSON array",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openStore(ctx context.Context) (*storage.PostgresStore, error) {
	store, err := storage.NewPostgresStore(ctx, cfg.DSN(), &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		return nil, err
	}
	return store, nil
}

// newResolver builds the proximity resolver. The geospatial query is
// optional: without it every lookup scans in memory. The returned func
// releases the query pool.
func newResolver(ctx context.Context, store *storage.PostgresStore) (*services.ProximityResolver, func()) {
	cleanup := func() {}
	var querier storage.NearbyQuerier
	if cfg.NearbyRPCEnabled {
		rpc, err := storage.NewNearbyRPC(ctx, cfg.DSN())
		if err != nil {
			logger.Warn("[nearby] geospatial query unavailable, using in-memory scan: %v", err)
		} else {
			querier = rpc
			cleanup = rpc.Close
		}
	}
	if querier == nil {
		return services.NewProximityResolver(nil, nil, logger).WithRadiusSuggestion(options.SuggestRadius), cleanup
	}
	return services.NewProximityResolver(querier, store, logger).WithRadiusSuggestion(options.SuggestRadius), cleanup
}

func newGeocoder() *geolocate.Geocoder {
	return geolocate.NewGeocoder(geolocate.GeocoderConfig{
		BaseURL:    cfg.NominatimURL,
		Email:      cfg.NominatimEmail,
		UserAgent:  cfg.NominatimUserAgent,
		Country:    cfg.NominatimCountry,
		MaxRetries: cfg.MaxRetries,
	}, logger)
}

func positionOptions() services.PositionOptions {
	return services.PositionOptions{
		HighAccuracy: cfg.GeolocationHighAccuracy,
		Timeout:      cfg.GeolocationTimeout,
		MaximumAge:   cfg.GeolocationMaxAge,
	}
}

func loadListings(ctx context.Context, store storage.ListingReader) ([]*models.Listing, error) {
	raw, err := store.FetchApproved(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewCleaner(logger).Clean(raw), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	resolver, closeRPC := newResolver(ctx, store)
	defer closeRPC()

	logger.Info("=== allrentr API starting ===")
	logger.Info("Config: addr %s | radius %.0fm | tiers %v | geospatial query %v",
		cfg.HTTPAddr, cfg.RadiusMeters, options.RadiusTiers, cfg.NearbyRPCEnabled)

	return api.NewServer(store, resolver, options, cfg.RadiusMeters, logger).Run(ctx, cfg.HTTPAddr)
}

// pickLocator chooses the origin source from flags, then configuration.
func pickLocator(cmd *cobra.Command) (services.PositionProvider, error) {
	switch {
	case cmd.Flags().Changed("lat"):
		return geolocate.NewStaticLocator(nearbyLat, nearbyLng), nil
	case nearbyPlace != "":
		return geolocate.NewPlaceLocator(newGeocoder(), nearbyPlace), nil
	case nearbyLocate:
		return geolocate.NewBrowserLocator(cfg.ChromeBin, cfg.GeolocationPage, logger), nil
	}
	if lat, lng, ok := cfg.Origin(); ok {
		return geolocate.NewStaticLocator(lat, lng), nil
	}
	return nil, errors.New("no origin: pass --lat/--lng, --place or --locate, or set ORIGIN_LAT/ORIGIN_LNG")
}

// csvTarget returns the CSV path to write, or "" when --csv was not given.
func csvTarget() string {
	if csvPath == csvFromConfig {
		return cfg.CSVOutputPath
	}
	return csvPath
}

// clusterModeFor picks --mode when set, then CLUSTER_MODE. A clusters run
// always groups, so none falls back to city.
func clusterModeFor(cmd *cobra.Command) (models.ClusterMode, error) {
	name := cfg.ClusterMode
	if cmd.Flags().Changed("mode") {
		name = clusterMode
	}
	mode, err := models.ParseClusterMode(name)
	if err != nil {
		return models.ClusterNone, err
	}
	if mode == models.ClusterNone {
		mode = models.ClusterCity
	}
	return mode, nil
}

func runNearby(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	radius := nearbyRadius
	if !cmd.Flags().Changed("radius") {
		radius = cfg.RadiusMeters
	}
	if radius <= 0 {
		return fmt.Errorf("radius must be positive, got %v", radius)
	}
	if nearbyCategory != "" && !options.HasCategory(nearbyCategory) {
		return fmt.Errorf("unknown category %q", nearbyCategory)
	}

	locator, err := pickLocator(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	resolver, closeRPC := newResolver(ctx, store)
	defer closeRPC()

	listings, err := loadListings(ctx, store)
	if err != nil {
		return err
	}

	session := services.NewNearbySession(resolver, locator, positionOptions(), radius, logger)
	session.SetListings(ctx, listings)
	session.Update(func(v models.ViewState) models.ViewState {
		return v.WithFilters(models.Filters{Search: nearbySearch, PinCode: nearbyPin, Category: nearbyCategory})
	})

	notice, err := session.EnableNearby(ctx)
	if err != nil {
		printNotice(notice)
		return err
	}
	logger.Info("[nearby] %s", notice.Message)

	view := session.View()
	result := session.Result()
	printNearby(view, result)

	if nearbySweep && result != nil {
		origin := result.Origin
		fmt.Printf("\n  Listings per radius tier around %.4f, %.4f\n", origin.Lat, origin.Lng)
		for _, tc := range services.SweepRadii(ctx, resolver, listings, origin, options.RadiusTiers, cfg.MaxConcurrency) {
			fmt.Printf("  %6skm  %4d  (%s)\n", services.FormatKm(tc.RadiusMeters), tc.Count, tc.Source)
		}
	}

	insights := services.NewInsightService(logger)
	insights.Print(insights.Generate(listings, result, models.ClusterNone))

	if path := csvTarget(); path != "" && result != nil {
		w, err := storage.NewCSVWriter(path)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.WriteNearby(result); err != nil {
			return err
		}
		logger.Info("Nearby listings saved to %s", path)
	}
	return nil
}

func runClusters(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	mode, err := clusterModeFor(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	listings, err := loadListings(ctx, store)
	if err != nil {
		return err
	}

	clusters := services.ComputeClusters(listings, mode)
	if clusterKey != "" {
		state, ok := services.DrillDown(listings, models.ViewState{ClusterMode: mode}, clusterKey)
		if !ok {
			return fmt.Errorf("no %s cluster %q", mode, clusterKey)
		}
		v := services.ResolveView(listings, nil, state)
		fmt.Printf("\n  %s (%d listings)\n", v.FromCluster, len(v.Listings))
		for _, l := range v.Listings {
			fmt.Printf("  - %-40s ₹%.0f  %s\n", services.Truncate(l.ProductName, 40), l.RentPrice, l.PinCode)
		}
		fmt.Println()
	} else {
		insights := services.NewInsightService(logger)
		insights.Print(insights.Generate(listings, nil, mode))
	}

	if path := csvTarget(); path != "" {
		w, err := storage.NewCSVWriter(path)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.WriteClusters(mode, clusters); err != nil {
			return err
		}
		logger.Info("Clusters saved to %s", path)
	}
	return nil
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	b := geolocate.NewBackfiller(store, newGeocoder(), cfg.MaxConcurrency, cfg.NominatimRateLimitMs, logger)
	stats, err := b.Run(ctx, backfillLimit)
	if err != nil {
		return err
	}
	fmt.Printf("  Geocoded %d of %d listings (%d not found, %d skipped, %d failed)\n",
		stats.Located, stats.Scanned, stats.NotFound, stats.Skipped, stats.Failed)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var raw []*models.Listing
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	n, err := importListings(ctx, store, raw)
	if err != nil {
		return err
	}
	logger.Info("Stored %d listings (table: listings); run backfill to geocode those without coordinates", n)
	return nil
}

// importListings cleans raw, stores the survivors through w and closes w.
// Listings without an id get a fresh one so cleaning keeps them.
func importListings(ctx context.Context, w storage.ListingWriter, raw []*models.Listing) (int, error) {
	defer w.Close()

	for _, l := range raw {
		if l != nil && l.ID == "" {
			l.ID = uuid.NewString()
		}
	}
	cleaned := services.NewCleaner(logger).Clean(raw)
	if len(cleaned) == 0 {
		return 0, errors.New("all listings were dropped during cleaning")
	}
	if err := w.Write(ctx, cleaned); err != nil {
		return 0, err
	}
	return len(cleaned), nil
}
