package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/daisydate/go-date-course-planner/internal/api"
	"github.com/daisydate/go-date-course-planner/internal/types"
)

// ErrCacheMiss means no cached route exists for the coordinate pair.
var ErrCacheMiss = errors.New("route cache miss")

// CacheRepository is the persistent route cache. Lookup is by exact
// coordinate equality on the four-field composite key; distinct float
// representations of "the same" location miss the cache. That is accepted
// behaviour, not a bug to silently fix. Entries are never mutated and
// never expire.
type CacheRepository interface {
	Get(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error)
	Put(ctx context.Context, origin, destination types.LatLng, info *types.RouteInfo) error
}

var _ CacheRepository = (*CacheRepositoryImpl)(nil)

type CacheRepositoryImpl struct {
	logger *slog.Logger
	pgpool api.DBQuerier
}

func NewCacheRepository(pgpool api.DBQuerier, logger *slog.Logger) *CacheRepositoryImpl {
	return &CacheRepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *CacheRepositoryImpl) Get(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error) {
	query := `
        SELECT distance_m, duration_s, path
        FROM route_cache
        WHERE start_lat = $1 AND start_lng = $2 AND end_lat = $3 AND end_lng = $4
    `
	var info types.RouteInfo
	var pathJSON []byte
	err := r.pgpool.QueryRow(ctx, query, origin.Lat, origin.Lng, destination.Lat, destination.Lng).Scan(
		&info.DistanceMeters, &info.DurationSeconds, &pathJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to query route cache: %w", err)
	}

	if err := json.Unmarshal(pathJSON, &info.Path); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached path: %w", err)
	}
	return &info, nil
}

func (r *CacheRepositoryImpl) Put(ctx context.Context, origin, destination types.LatLng, info *types.RouteInfo) error {
	pathJSON, err := json.Marshal(info.Path)
	if err != nil {
		return fmt.Errorf("failed to marshal path: %w", err)
	}

	query := `
        INSERT INTO route_cache (start_lat, start_lng, end_lat, end_lng, distance_m, duration_s, path)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (start_lat, start_lng, end_lat, end_lng) DO NOTHING
    `
	_, err = r.pgpool.Exec(ctx, query,
		origin.Lat, origin.Lng, destination.Lat, destination.Lng,
		info.DistanceMeters, info.DurationSeconds, pathJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert route cache entry: %w", err)
	}

	r.logger.Info("Saved new route",
		slog.Float64("start_lat", origin.Lat), slog.Float64("start_lng", origin.Lng),
		slog.Float64("end_lat", destination.Lat), slog.Float64("end_lng", destination.Lng),
	)
	return nil
}
