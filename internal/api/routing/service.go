package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/daisydate/go-date-course-planner/app/observability/metrics"
	"github.com/daisydate/go-date-course-planner/internal/types"
)

// Service resolves routes with the cascading strategy: in-process hot
// cache, then the persistent route cache, then the provider chain with a
// write-back. When everything fails it returns ErrRouteNotFound and the
// caller applies the straight-line fallback.
type Service interface {
	GetOrFetchRoute(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	cacheRepo CacheRepository
	chain     Provider
	hotCache  *cache.Cache
	logger    *slog.Logger
}

func NewServiceImpl(cacheRepo CacheRepository, chain Provider, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		cacheRepo: cacheRepo,
		chain:     chain,
		// Process-local front for the persistent cache; entries are tiny
		// and immutable, so a long TTL is safe.
		hotCache: cache.New(12*time.Hour, 30*time.Minute),
		logger:   logger,
	}
}

func hotCacheKey(origin, destination types.LatLng) string {
	return fmt.Sprintf("route:%v:%v:%v:%v", origin.Lat, origin.Lng, destination.Lat, destination.Lng)
}

func (s *ServiceImpl) GetOrFetchRoute(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error) {
	ctx, span := otel.Tracer("RoutingService").Start(ctx, "GetOrFetchRoute", attributeOriginDest(origin, destination))
	defer span.End()

	key := hotCacheKey(origin, destination)
	if cached, found := s.hotCache.Get(key); found {
		metrics.Get().RouteCacheHitsTotal.Add(ctx, 1)
		span.SetAttributes(attribute.String("cache", "hot"))
		span.SetStatus(codes.Ok, "Hot cache hit")
		return cached.(*types.RouteInfo), nil
	}

	info, err := s.cacheRepo.Get(ctx, origin, destination)
	if err == nil {
		s.logger.InfoContext(ctx, "Route cache hit",
			slog.Float64("start_lat", origin.Lat), slog.Float64("start_lng", origin.Lng),
			slog.Float64("end_lat", destination.Lat), slog.Float64("end_lng", destination.Lng),
		)
		metrics.Get().RouteCacheHitsTotal.Add(ctx, 1)
		s.hotCache.Set(key, info, cache.DefaultExpiration)
		span.SetAttributes(attribute.String("cache", "db"))
		span.SetStatus(codes.Ok, "Cache hit")
		return info, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		// A broken cache must not block routing; fall through to providers.
		s.logger.ErrorContext(ctx, "Route cache lookup failed", slog.Any("error", err))
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
	} else {
		metrics.Get().RouteCacheMissesTotal.Add(ctx, 1)
		s.logger.InfoContext(ctx, "Route cache miss, fetching from providers")
	}

	info, err = s.chain.Route(ctx, origin, destination)
	if err != nil {
		span.SetStatus(codes.Error, "All routing sources exhausted")
		return nil, err
	}

	// Write-back failure is non-fatal; the computed route is still returned.
	if putErr := s.cacheRepo.Put(ctx, origin, destination, info); putErr != nil {
		s.logger.ErrorContext(ctx, "Failed to save route to cache", slog.Any("error", putErr))
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
	}
	s.hotCache.Set(key, info, cache.DefaultExpiration)

	span.SetStatus(codes.Ok, "Route fetched from provider")
	return info, nil
}
