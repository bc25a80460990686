package routing

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/daisydate/go-date-course-planner/internal/types"
)

func attributeOriginDest(origin, destination types.LatLng) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.Float64("origin.lat", origin.Lat),
		attribute.Float64("origin.lng", origin.Lng),
		attribute.Float64("destination.lat", destination.Lat),
		attribute.Float64("destination.lng", destination.Lng),
	)
}

var (
	// ErrRouteNotFound means the provider (or the whole chain) could not
	// produce a route between the two coordinates.
	ErrRouteNotFound = errors.New("route not found")

	// ErrMissingCredentials means the provider has no API key configured.
	ErrMissingCredentials = errors.New("missing credentials")
)

// Provider computes a route between two coordinates or fails with a typed
// error. Providers never fabricate geometry.
type Provider interface {
	Name() string
	Route(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error)
}

var _ Provider = (*Chain)(nil)

// Chain tries each configured provider in priority order and returns the
// first successful result. When every provider fails the caller is
// responsible for the straight-line fallback; the chain itself returns
// ErrRouteNotFound.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		logger:    logger,
	}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Route(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error) {
	ctx, span := otel.Tracer("RouteChain").Start(ctx, "Route")
	defer span.End()

	for _, p := range c.providers {
		info, err := p.Route(ctx, origin, destination)
		if err == nil {
			span.SetAttributes(attribute.String("provider", p.Name()))
			span.SetStatus(codes.Ok, "Route resolved")
			return info, nil
		}
		c.logger.WarnContext(ctx, "Route provider failed, trying next",
			slog.String("provider", p.Name()),
			slog.Any("error", err),
		)
	}

	span.SetStatus(codes.Error, "All providers failed")
	return nil, ErrRouteNotFound
}
