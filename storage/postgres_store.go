package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"allrentr/models"
	"allrentr/utils"
)

const listingColumns = `id, owner_user_id, product_name, description, category, rent_price,
	address, pin_code, city, state, locality, latitude, longitude, geohash,
	views, rating, rating_count, listing_status, created_at`

// PostgresStore reads and writes the listings table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore. The initial ping is retried with
// retry; nil means ten attempts two seconds apart, doubling.
func NewPostgresStore(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second}
	}
	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

// migrate creates the listings table and the get_nearby_listings function
// queried by NearbyRPC.
func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id             TEXT PRIMARY KEY,
			owner_user_id  TEXT          NOT NULL DEFAULT '',
			product_name   TEXT          NOT NULL,
			description    TEXT          NOT NULL DEFAULT '',
			category       VARCHAR(50)   NOT NULL DEFAULT 'other',
			rent_price     NUMERIC(12,2) NOT NULL DEFAULT 0,
			address        TEXT          NOT NULL DEFAULT '',
			pin_code       VARCHAR(12)   NOT NULL DEFAULT '',
			city           TEXT          NOT NULL DEFAULT '',
			state          TEXT          NOT NULL DEFAULT '',
			locality       TEXT          NOT NULL DEFAULT '',
			latitude       DOUBLE PRECISION,
			longitude      DOUBLE PRECISION,
			geohash        VARCHAR(12)   NOT NULL DEFAULT '',
			views          INTEGER       NOT NULL DEFAULT 0,
			rating         NUMERIC(3,2)  NOT NULL DEFAULT 0,
			rating_count   INTEGER       NOT NULL DEFAULT 0,
			listing_status VARCHAR(20)   NOT NULL DEFAULT 'pending',
			created_at     TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_status   ON listings(listing_status);
		CREATE INDEX IF NOT EXISTS idx_listings_pin_code ON listings(pin_code);
		CREATE INDEX IF NOT EXISTS idx_listings_city     ON listings(city);
		CREATE INDEX IF NOT EXISTS idx_listings_geohash  ON listings(geohash);

		CREATE OR REPLACE FUNCTION get_nearby_listings(
			user_lat DOUBLE PRECISION,
			user_lng DOUBLE PRECISION,
			radius_meters DOUBLE PRECISION
		) RETURNS TABLE (id TEXT, distance_meters DOUBLE PRECISION) AS $$
			SELECT s.listing_id, s.d FROM (
				SELECT l.id AS listing_id,
					6371000 * 2 * asin(least(1, sqrt(
						power(sin(radians(l.latitude - user_lat) / 2), 2) +
						cos(radians(user_lat)) * cos(radians(l.latitude)) *
						power(sin(radians(l.longitude - user_lng) / 2), 2)
					))) AS d
				FROM listings l
				WHERE l.listing_status = 'approved'
					AND l.latitude IS NOT NULL
					AND l.longitude IS NOT NULL
			) s
			WHERE s.d <= radius_meters
			ORDER BY s.d
		$$ LANGUAGE sql STABLE;
	`)
	return err
}

// FetchApproved retrieves all approved listings, newest first.
func (ps *PostgresStore) FetchApproved(ctx context.Context) ([]*models.Listing, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE listing_status = 'approved'
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch approved: %w", err)
	}
	return scanListings(rows)
}

// GetByIDs hydrates the given ids. Unknown ids are skipped.
func (ps *PostgresStore) GetByIDs(ctx context.Context, ids []string) ([]*models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := ps.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("postgres: get by ids: %w", err)
	}
	return scanListings(rows)
}

// FetchMissingLocation returns approved listings without coordinates.
func (ps *PostgresStore) FetchMissingLocation(ctx context.Context, limit int) ([]*models.Listing, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE listing_status = 'approved' AND (latitude IS NULL OR longitude IS NULL)
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch missing location: %w", err)
	}
	return scanListings(rows)
}

// UpdateLocation stores geocoded coordinates. Empty place fields keep the
// existing column value.
func (ps *PostgresStore) UpdateLocation(ctx context.Context, id string, place models.Place) error {
	res, err := ps.db.ExecContext(ctx, `
		UPDATE listings
		SET latitude = $2,
			longitude = $3,
			geohash = $4,
			city = COALESCE(NULLIF($5, ''), city),
			state = COALESCE(NULLIF($6, ''), state),
			locality = COALESCE(NULLIF($7, ''), locality)
		WHERE id = $1
	`, id, place.Lat, place.Lng, place.Geohash, place.City, place.State, place.Locality)
	if err != nil {
		return fmt.Errorf("postgres: update location %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("postgres: update location %s: no such listing", id)
	}
	return nil
}

// Write upserts listings in batches. Listings without an id get a new UUID.
func (ps *PostgresStore) Write(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := ps.insertBatch(ctx, listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PostgresStore) insertBatch(ctx context.Context, batch []*models.Listing) error {
	const cols = 15
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, l := range batch {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		status := l.ListingStatus
		if status == "" {
			status = "pending"
		}

		placeholders := make([]string, cols)
		for c := 0; c < cols; c++ {
			placeholders[c] = fmt.Sprintf("$%d", idx*cols+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			l.ID, l.OwnerUserID, l.ProductName, l.Description, l.Category, l.RentPrice,
			l.Address, l.PinCode, l.City, l.State, l.Locality,
			nullFloat(l.Latitude), nullFloat(l.Longitude), l.Geohash, status)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (id, owner_user_id, product_name, description, category, rent_price,
			address, pin_code, city, state, locality, latitude, longitude, geohash, listing_status)
		VALUES %s
		ON CONFLICT (id) DO UPDATE SET
			product_name = EXCLUDED.product_name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			rent_price = EXCLUDED.rent_price,
			address = EXCLUDED.address,
			pin_code = EXCLUDED.pin_code,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			locality = EXCLUDED.locality,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			geohash = EXCLUDED.geohash,
			listing_status = EXCLUDED.listing_status
	`, strings.Join(valueStrings, ","))

	if _, err := ps.db.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func scanListings(rows *sql.Rows) ([]*models.Listing, error) {
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		var lat, lng sql.NullFloat64
		if err := rows.Scan(
			&l.ID, &l.OwnerUserID, &l.ProductName, &l.Description, &l.Category, &l.RentPrice,
			&l.Address, &l.PinCode, &l.City, &l.State, &l.Locality, &lat, &lng, &l.Geohash,
			&l.Views, &l.Rating, &l.RatingCount, &l.ListingStatus, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if lat.Valid {
			l.Latitude = &lat.Float64
		}
		if lng.Valid {
			l.Longitude = &lng.Float64
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
