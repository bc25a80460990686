package places

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/daisydate/go-date-course-planner/app/observability/metrics"
	"github.com/daisydate/go-date-course-planner/internal/types"
)

// Service combines the live search provider with the place store. Storage
// failures degrade to empty results so plan generation survives a broken
// database.
type Service interface {
	Search(ctx context.Context, query string, limit int) []types.Place
	Persist(ctx context.Context, place types.Place)
	FindNearby(ctx context.Context, lat, lng float64, radiusMeters float64, limit int) []types.Place
	SearchByText(ctx context.Context, query string) []types.Place
	FindByID(ctx context.Context, id string) *types.Place
	FindAll(ctx context.Context, skip, take int) []types.Place
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	provider Provider
	repo     Repository
	logger   *slog.Logger
}

func NewServiceImpl(provider Provider, repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		provider: provider,
		repo:     repo,
		logger:   logger,
	}
}

func (s *ServiceImpl) Search(ctx context.Context, query string, limit int) []types.Place {
	return s.provider.Search(ctx, query, limit)
}

// Persist upserts a resolved candidate into the place store. Failures are
// logged and swallowed; losing one upsert must not fail the planning turn.
func (s *ServiceImpl) Persist(ctx context.Context, place types.Place) {
	ctx, span := otel.Tracer("PlaceService").Start(ctx, "Persist", trace.WithAttributes(
		attribute.String("place.id", place.ID),
	))
	defer span.End()

	if err := s.repo.Upsert(ctx, place); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist place",
			slog.String("id", place.ID), slog.Any("error", err))
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Upsert failed")
		return
	}
	span.SetStatus(codes.Ok, "Place persisted")
}

func (s *ServiceImpl) FindNearby(ctx context.Context, lat, lng float64, radiusMeters float64, limit int) []types.Place {
	ctx, span := otel.Tracer("PlaceService").Start(ctx, "FindNearby", trace.WithAttributes(
		attribute.Float64("lat", lat),
		attribute.Float64("lng", lng),
		attribute.Float64("radius_m", radiusMeters),
	))
	defer span.End()

	results, err := s.repo.FindNearby(ctx, lat, lng, radiusMeters, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Nearby place lookup failed", slog.Any("error", err))
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "FindNearby failed")
		return nil
	}
	span.SetAttributes(attribute.Int("results", len(results)))
	span.SetStatus(codes.Ok, "Nearby lookup completed")
	return results
}

func (s *ServiceImpl) SearchByText(ctx context.Context, query string) []types.Place {
	results, err := s.repo.SearchByText(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Text search failed", slog.String("query", query), slog.Any("error", err))
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		return nil
	}
	return results
}

func (s *ServiceImpl) FindByID(ctx context.Context, id string) *types.Place {
	place, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Place lookup failed", slog.String("id", id), slog.Any("error", err))
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		return nil
	}
	return place
}

func (s *ServiceImpl) FindAll(ctx context.Context, skip, take int) []types.Place {
	results, err := s.repo.FindAll(ctx, skip, take)
	if err != nil {
		s.logger.ErrorContext(ctx, "Place listing failed", slog.Any("error", err))
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		return nil
	}
	return results
}
