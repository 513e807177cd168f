package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"allrentr/config"
	"allrentr/utils"
)

var (
	cfg     *config.Config
	options *config.FilterOptions
	logger  *utils.Logger
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "allrentr",
	Short: "Find rental listings near you and group them by city, PIN or area",
	Long: `allrentr resolves rental listings near a location, groups the catalogue
by city, PIN code or map area, and keeps listing coordinates up to date.

Configuration is read from .env and the environment (see config/config.go).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger = utils.NewLogger(level)

		var err error
		options, err = config.LoadFilterOptions(cfg.FilterOptionsPath)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	nearbyCmd.Flags().Float64Var(&nearbyLat, "lat", 0, "Origin latitude")
	nearbyCmd.Flags().Float64Var(&nearbyLng, "lng", 0, "Origin longitude")
	nearbyCmd.Flags().BoolVar(&nearbyLocate, "locate", false, "Use the device location through headless Chrome")
	nearbyCmd.Flags().StringVar(&nearbyPlace, "place", "", "Geocode this PIN code or place name as the origin")
	nearbyCmd.Flags().Float64Var(&nearbyRadius, "radius", 0, "Radius in metres (default RADIUS_METERS)")
	nearbyCmd.Flags().StringVar(&nearbySearch, "search", "", "Match product name or description")
	nearbyCmd.Flags().StringVar(&nearbyPin, "pin", "", "Match PIN code")
	nearbyCmd.Flags().StringVar(&nearbyCategory, "category", "", "Exact category")
	nearbyCmd.Flags().BoolVar(&nearbySweep, "sweep", false, "Also count listings for every radius tier")
	nearbyCmd.Flags().StringVar(&csvPath, "csv", "", "Write results to CSV: --csv=<file>, or bare --csv for CSV_OUTPUT_PATH")
	nearbyCmd.Flags().Lookup("csv").NoOptDefVal = csvFromConfig
	nearbyCmd.MarkFlagsRequiredTogether("lat", "lng")
	nearbyCmd.MarkFlagsMutuallyExclusive("lat", "locate", "place")

	clustersCmd.Flags().StringVar(&clusterMode, "mode", "", "Grouping: city, pin or geo (default CLUSTER_MODE, else city)")
	clustersCmd.Flags().StringVar(&clusterKey, "key", "", "Drill into the cluster with this key")
	clustersCmd.Flags().StringVar(&csvPath, "csv", "", "Write clusters to CSV: --csv=<file>, or bare --csv for CSV_OUTPUT_PATH")
	clustersCmd.Flags().Lookup("csv").NoOptDefVal = csvFromConfig

	backfillCmd.Flags().IntVar(&backfillLimit, "limit", 100, "Maximum listings to geocode")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(nearbyCmd)
	rootCmd.AddCommand(clustersCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
