package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"allrentr/models"
)

// NearbyRPC calls the get_nearby_listings database function over a pgx pool.
// Cancelling the context aborts the query server-side.
type NearbyRPC struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewNearbyRPC connects a pool to dsn (URL or key=value form).
func NewNearbyRPC(ctx context.Context, dsn string) (*NearbyRPC, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("nearby rpc: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("nearby rpc: ping: %w", err)
	}

	return &NearbyRPC{pool: pool, timeout: 5 * time.Second}, nil
}

// FindNearby returns ids and distances of approved listings within
// radiusMeters, nearest first.
func (r *NearbyRPC) FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]models.NearbyRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT id, distance_meters FROM get_nearby_listings($1, $2, $3)`,
		lat, lng, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("nearby rpc: query: %w", err)
	}
	defer rows.Close()

	var out []models.NearbyRow
	for rows.Next() {
		var row models.NearbyRow
		if err := rows.Scan(&row.ID, &row.DistanceMeters); err != nil {
			return nil, fmt.Errorf("nearby rpc: scan: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nearby rpc: rows: %w", err)
	}
	return out, nil
}

// Close releases the pool.
func (r *NearbyRPC) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
