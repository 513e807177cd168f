package geolocate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"allrentr/geo"
	"allrentr/models"
	"allrentr/utils"
)

// ErrNotFound is returned when Nominatim has no match for any query.
var ErrNotFound = errors.New("nominatim: location not found")

// GeocoderConfig holds the Nominatim endpoint and the identification the
// usage policy asks for.
type GeocoderConfig struct {
	BaseURL    string
	Email      string
	UserAgent  string
	Country    string
	MaxRetries int
	Timeout    time.Duration
}

// Geocoder resolves free-text addresses through a Nominatim search endpoint.
type Geocoder struct {
	cfg    GeocoderConfig
	client *http.Client
	retry  *utils.RetryConfig
	logger *utils.Logger
}

// NewGeocoder creates a Geocoder. A zero Timeout defaults to 15s.
func NewGeocoder(cfg GeocoderConfig, logger *utils.Logger) *Geocoder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "allrentr/1.0"
	}
	return &Geocoder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

type searchResult struct {
	Lat     string            `json:"lat"`
	Lon     string            `json:"lon"`
	Address map[string]string `json:"address"`
}

// errNoRetry marks responses that another attempt will not fix.
type errNoRetry struct{ err error }

func (e errNoRetry) Error() string { return e.err.Error() }
func (e errNoRetry) Unwrap() error { return e.err }

// Search geocodes one query and returns the best match. It returns
// ErrNotFound when Nominatim answers with no results.
func (g *Geocoder) Search(ctx context.Context, query string) (*models.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrNotFound
	}

	var (
		results []searchResult
		fatal   error
	)
	err := g.retry.Do(ctx, "nominatim search", func() error {
		res, err := g.search(ctx, query)
		var nr errNoRetry
		if errors.As(err, &nr) {
			fatal = nr.err
			return nil
		}
		results = res
		return err
	})
	if err == nil {
		err = fatal
	}
	if err != nil {
		return nil, fmt.Errorf("nominatim: search %q: %w", query, err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}

	return placeFromResult(results[0])
}

func (g *Geocoder) search(ctx context.Context, query string) ([]searchResult, error) {
	u, err := url.Parse(g.cfg.BaseURL)
	if err != nil {
		return nil, errNoRetry{fmt.Errorf("parse base url: %w", err)}
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")
	if g.cfg.Country != "" {
		q.Set("countrycodes", g.cfg.Country)
	}
	if g.cfg.Email != "" {
		q.Set("email", g.cfg.Email)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errNoRetry{err}
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, errNoRetry{fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, errNoRetry{fmt.Errorf("decode response: %w", err)}
	}
	return results, nil
}

func placeFromResult(r searchResult) (*models.Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: bad latitude %q: %w", r.Lat, err)
	}
	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: bad longitude %q: %w", r.Lon, err)
	}
	return &models.Place{
		Lat:      lat,
		Lng:      lng,
		City:     firstOf(r.Address, "city", "town", "village", "county"),
		State:    r.Address["state"],
		Locality: firstOf(r.Address, "suburb", "neighbourhood", "hamlet"),
		Geohash:  geo.Geohash(lat, lng),
	}, nil
}

func firstOf(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}

// ListingQueries returns the queries tried for a listing, most specific
// first: "address, pin, India" then "pin, India".
func ListingQueries(address, pin string) []string {
	address, pin = strings.TrimSpace(address), strings.TrimSpace(pin)

	var parts []string
	for _, p := range []string{address, pin, "India"} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	queries := []string{strings.Join(parts, ", ")}
	if pin != "" && address != "" {
		queries = append(queries, pin+", India")
	}
	return queries
}

// ResolveListingLocation geocodes a listing's address and PIN, trying the
// queries from ListingQueries in order. Hard failures of one query are
// logged and the next query is tried.
func (g *Geocoder) ResolveListingLocation(ctx context.Context, address, pin string) (*models.Place, error) {
	var lastErr error = ErrNotFound
	for _, q := range ListingQueries(address, pin) {
		place, err := g.Search(ctx, q)
		if err == nil {
			g.logger.Debug("[nominatim] %q → %.5f,%.5f (%s)", q, place.Lat, place.Lng, place.City)
			return place, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, ErrNotFound) {
			g.logger.Warn("[nominatim] %v", err)
			lastErr = err
		}
	}
	return nil, lastErr
}
