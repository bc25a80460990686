package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/daisydate/go-date-course-planner/app/observability/metrics"
	"github.com/daisydate/go-date-course-planner/internal/types"
)

const (
	defaultGoogleRoutesEndpoint = "https://routes.googleapis.com/directions/v2:computeRoutes"
	googleRoutesFieldMask       = "routes.distanceMeters,routes.duration,routes.polyline.encodedPolyline"
)

var _ Provider = (*GoogleRoutesProvider)(nil)

// GoogleRoutesProvider computes walking routes via the Google Routes API.
// Geometry comes back as an encoded polyline and is decoded into the
// uniform coordinate representation.
type GoogleRoutesProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewGoogleRoutesProvider(apiKey string, timeout time.Duration, logger *slog.Logger) *GoogleRoutesProvider {
	return &GoogleRoutesProvider{
		apiKey:   apiKey,
		endpoint: defaultGoogleRoutesEndpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// WithEndpoint overrides the API endpoint. Used in tests.
func (p *GoogleRoutesProvider) WithEndpoint(endpoint string) *GoogleRoutesProvider {
	p.endpoint = endpoint
	return p
}

func (p *GoogleRoutesProvider) Name() string { return "google-routes" }

type googleRoutesRequest struct {
	Origin                   googleWaypoint `json:"origin"`
	Destination              googleWaypoint `json:"destination"`
	TravelMode               string         `json:"travelMode"`
	ComputeAlternativeRoutes bool           `json:"computeAlternativeRoutes"`
}

type googleWaypoint struct {
	Location struct {
		LatLng struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"latLng"`
	} `json:"location"`
}

type googleRoutesResponse struct {
	Routes []struct {
		DistanceMeters float64 `json:"distanceMeters"`
		Duration       string  `json:"duration"` // "123s"
		Polyline       struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
	} `json:"routes"`
}

func (p *GoogleRoutesProvider) Route(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error) {
	ctx, span := otel.Tracer("GoogleRoutesProvider").Start(ctx, "Route", attributeOriginDest(origin, destination))
	defer span.End()

	if p.apiKey == "" {
		span.SetStatus(codes.Error, "API key missing")
		return nil, fmt.Errorf("google-routes: %w", ErrMissingCredentials)
	}

	var reqBody googleRoutesRequest
	reqBody.Origin.Location.LatLng.Latitude = origin.Lat
	reqBody.Origin.Location.LatLng.Longitude = origin.Lng
	reqBody.Destination.Location.LatLng.Latitude = destination.Lat
	reqBody.Destination.Location.LatLng.Longitude = destination.Lng
	reqBody.TravelMode = "WALK"

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("google-routes: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("google-routes: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", p.apiKey)
	req.Header.Set("X-Goog-FieldMask", googleRoutesFieldMask)

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.Get().RouteProviderErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Request failed")
		return nil, fmt.Errorf("google-routes: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		metrics.Get().RouteProviderErrorsTotal.Add(ctx, 1)
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		return nil, fmt.Errorf("google-routes: HTTP %d: %s", resp.StatusCode, string(errBody))
	}

	var data googleRoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		metrics.Get().RouteProviderErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		return nil, fmt.Errorf("google-routes: failed to decode response: %w", err)
	}

	if len(data.Routes) == 0 {
		span.SetStatus(codes.Error, "No routes")
		return nil, fmt.Errorf("google-routes: %w", ErrRouteNotFound)
	}

	route := data.Routes[0]
	info := &types.RouteInfo{
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: parseDurationSeconds(route.Duration),
		Path:            decodePolyline(route.Polyline.EncodedPolyline),
	}

	p.logger.InfoContext(ctx, "Google Routes computed",
		slog.Float64("distance_m", info.DistanceMeters),
		slog.Int("duration_s", info.DurationSeconds),
	)
	span.SetAttributes(attribute.Int("path_points", len(info.Path)))
	span.SetStatus(codes.Ok, "Route computed")
	return info, nil
}

// parseDurationSeconds parses the Routes API "123s" duration format.
func parseDurationSeconds(d string) int {
	s := strings.TrimSuffix(d, "s")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(v)
}
