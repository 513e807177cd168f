package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// NearbyRPCEnabled turns on the server-side geospatial query. When off
	// every nearby lookup uses the in-memory scan.
	NearbyRPCEnabled bool

	OriginLat    *float64
	OriginLng    *float64
	RadiusMeters float64
	ClusterMode  string

	GeolocationTimeout      time.Duration
	GeolocationMaxAge       time.Duration
	GeolocationHighAccuracy bool
	GeolocationPage         string
	ChromeBin               string

	NominatimURL         string
	NominatimEmail       string
	NominatimUserAgent   string
	NominatimCountry     string
	NominatimRateLimitMs int
	MaxRetries           int
	MaxConcurrency       int

	HTTPAddr          string
	CSVOutputPath     string
	FilterOptionsPath string
	LogLevel          string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "allrentr"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "allrentr"),
		PostgresDB:       getEnv("POSTGRES_DB", "allrentr"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		NearbyRPCEnabled: getEnvBool("NEARBY_RPC_ENABLED", true),

		OriginLat:    getEnvFloatPtr("ORIGIN_LAT"),
		OriginLng:    getEnvFloatPtr("ORIGIN_LNG"),
		RadiusMeters: getEnvFloat("RADIUS_METERS", 5000),
		ClusterMode:  getEnv("CLUSTER_MODE", "none"),

		GeolocationTimeout:      getEnvDuration("GEOLOCATION_TIMEOUT", 10*time.Second),
		GeolocationMaxAge:       getEnvDuration("GEOLOCATION_MAX_AGE", 60*time.Second),
		GeolocationHighAccuracy: getEnvBool("GEOLOCATION_HIGH_ACCURACY", true),
		GeolocationPage:         getEnv("GEOLOCATION_PAGE", "about:blank"),
		ChromeBin:               getEnv("CHROME_BIN", ""),

		NominatimURL:         getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search"),
		NominatimEmail:       getEnv("NOMINATIM_EMAIL", ""),
		NominatimUserAgent:   getEnv("NOMINATIM_USER_AGENT", "allrentr/1.0"),
		NominatimCountry:     getEnv("NOMINATIM_COUNTRY", "IN"),
		NominatimRateLimitMs: getEnvInt("NOMINATIM_RATE_LIMIT_MS", 1000),
		MaxRetries:           getEnvInt("MAX_RETRIES", 3),
		MaxConcurrency:       getEnvInt("MAX_CONCURRENCY", 4),

		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		CSVOutputPath:     getEnv("CSV_OUTPUT_PATH", "./output/nearby.csv"),
		FilterOptionsPath: getEnv("FILTER_OPTIONS_PATH", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string in key=value form.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// Origin returns the configured fixed origin, if both coordinates are set.
func (c *Config) Origin() (lat, lng float64, ok bool) {
	if c.OriginLat == nil || c.OriginLng == nil {
		return 0, 0, false
	}
	return *c.OriginLat, *c.OriginLng, true
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvFloatPtr(key string) *float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return &f
		}
	}
	return nil
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
