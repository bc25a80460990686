package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/daisydate/go-date-course-planner/internal/api"
	"github.com/daisydate/go-date-course-planner/internal/geo"
	"github.com/daisydate/go-date-course-planner/internal/types"
)

// Repository is the place store: every candidate resolved from the search
// provider is upserted here so later requests can reuse it via proximity
// lookup.
type Repository interface {
	Upsert(ctx context.Context, place types.Place) error
	FindNearby(ctx context.Context, lat, lng float64, radiusMeters float64, limit int) ([]types.Place, error)
	SearchByText(ctx context.Context, query string) ([]types.Place, error)
	FindByID(ctx context.Context, id string) (*types.Place, error)
	FindAll(ctx context.Context, skip, take int) ([]types.Place, error)
}

var _ Repository = (*RepositoryImpl)(nil)

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool api.DBQuerier
}

func NewRepository(pgpool api.DBQuerier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

const placeColumns = `id, title, address, lat, lng, rating, user_rating_count,
        category, photo_url, open_now, opening_hours, website`

// Upsert inserts or updates a place keyed by its provider-assigned ID,
// refreshing updated_at on conflict.
func (r *RepositoryImpl) Upsert(ctx context.Context, place types.Place) error {
	if place.ID == "" {
		return fmt.Errorf("place ID is required")
	}
	if place.Location.Lat < -90 || place.Location.Lat > 90 || place.Location.Lng < -180 || place.Location.Lng > 180 {
		return fmt.Errorf("invalid coordinates: lat=%f, lng=%f", place.Location.Lat, place.Location.Lng)
	}

	rawData, err := json.Marshal(place)
	if err != nil {
		return fmt.Errorf("failed to marshal place raw data: %w", err)
	}
	var openingHours []byte
	if place.OpeningHours != nil {
		openingHours, err = json.Marshal(place.OpeningHours)
		if err != nil {
			return fmt.Errorf("failed to marshal opening hours: %w", err)
		}
	}

	query := `
        INSERT INTO places (
            id, title, address, lat, lng, rating, user_rating_count,
            category, photo_url, open_now, opening_hours, website, raw_data
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
        )
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title,
            address = EXCLUDED.address,
            lat = EXCLUDED.lat,
            lng = EXCLUDED.lng,
            rating = EXCLUDED.rating,
            user_rating_count = EXCLUDED.user_rating_count,
            category = EXCLUDED.category,
            photo_url = EXCLUDED.photo_url,
            open_now = EXCLUDED.open_now,
            opening_hours = EXCLUDED.opening_hours,
            website = EXCLUDED.website,
            raw_data = EXCLUDED.raw_data,
            updated_at = now()
    `
	_, err = r.pgpool.Exec(ctx, query,
		place.ID, place.Title, place.Address, place.Location.Lat, place.Location.Lng,
		place.Rating, place.UserRatingCount, place.Category, place.PhotoURL,
		place.OpenNow, openingHours, place.Website, rawData,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert place: %w", err)
	}

	r.logger.Info("Place upserted", slog.String("id", place.ID), slog.String("title", place.Title))
	return nil
}

// FindNearby performs a two-phase proximity lookup: a bounding-box prefilter
// in SQL (up to 100 candidates), then a precise haversine filter against
// radiusMeters, ranked by popularity score rating*log10(count+1) descending.
func (r *RepositoryImpl) FindNearby(ctx context.Context, lat, lng float64, radiusMeters float64, limit int) ([]types.Place, error) {
	// 1 degree of latitude is ~111km; 0.009 deg/km with a safety margin for
	// longitude distortion at Korean latitudes.
	delta := (radiusMeters / 1000) * 0.015

	query := fmt.Sprintf(`
        SELECT %s FROM places
        WHERE lat >= $1 AND lat <= $2 AND lng >= $3 AND lng <= $4
        LIMIT 100
    `, placeColumns)

	rows, err := r.pgpool.Query(ctx, query, lat-delta, lat+delta, lng-delta, lng+delta)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby places: %w", err)
	}
	defer rows.Close()

	type scored struct {
		place types.Place
		score float64
	}
	var candidates []scored

	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		if geo.DistanceMeters(lat, lng, place.Location.Lat, place.Location.Lng) > radiusMeters {
			continue
		}
		var rating float64
		if place.Rating != nil {
			rating = *place.Rating
		}
		var count int
		if place.UserRatingCount != nil {
			count = *place.UserRatingCount
		}
		candidates = append(candidates, scored{
			place: place,
			score: rating * math.Log10(float64(count)+1),
		})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]types.Place, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.place)
	}
	return results, nil
}

// SearchByText matches name or address case-insensitively, capped at 10.
func (r *RepositoryImpl) SearchByText(ctx context.Context, q string) ([]types.Place, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM places
        WHERE title ILIKE '%%' || $1 || '%%' OR address ILIKE '%%' || $1 || '%%'
        LIMIT 10
    `, placeColumns)

	rows, err := r.pgpool.Query(ctx, query, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search places by text: %w", err)
	}
	defer rows.Close()

	return collectPlaces(rows)
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id string) (*types.Place, error) {
	query := fmt.Sprintf(`SELECT %s FROM places WHERE id = $1`, placeColumns)

	rows, err := r.pgpool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find place: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to find place: %w", err)
		}
		return nil, nil
	}
	place, err := scanPlace(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan place row: %w", err)
	}
	return &place, nil
}

func (r *RepositoryImpl) FindAll(ctx context.Context, skip, take int) ([]types.Place, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM places
        ORDER BY updated_at DESC
        OFFSET $1 LIMIT $2
    `, placeColumns)

	rows, err := r.pgpool.Query(ctx, query, skip, take)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	return collectPlaces(rows)
}

func scanPlace(rows pgx.Rows) (types.Place, error) {
	var place types.Place
	var openingHours []byte
	err := rows.Scan(
		&place.ID, &place.Title, &place.Address, &place.Location.Lat, &place.Location.Lng,
		&place.Rating, &place.UserRatingCount, &place.Category, &place.PhotoURL,
		&place.OpenNow, &openingHours, &place.Website,
	)
	if err != nil {
		return types.Place{}, err
	}
	if len(openingHours) > 0 {
		// Best effort: malformed stored hours should not fail the lookup.
		_ = json.Unmarshal(openingHours, &place.OpeningHours)
	}
	return place, nil
}

func collectPlaces(rows pgx.Rows) ([]types.Place, error) {
	var results []types.Place
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		results = append(results, place)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}
	return results, nil
}
