package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/daisydate/go-date-course-planner/app/observability/metrics"
	"github.com/daisydate/go-date-course-planner/internal/types"
)

const defaultKakaoEndpoint = "https://apis-navi.kakaomobility.com/v1/directions"

var _ Provider = (*KakaoProvider)(nil)

// KakaoProvider computes car routes via the Kakao Mobility directions API.
// It is the secondary provider in the chain, behind TMap.
type KakaoProvider struct {
	restKey  string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewKakaoProvider(restKey string, timeout time.Duration, logger *slog.Logger) *KakaoProvider {
	return &KakaoProvider{
		restKey:  restKey,
		endpoint: defaultKakaoEndpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// WithEndpoint overrides the API endpoint. Used in tests.
func (p *KakaoProvider) WithEndpoint(endpoint string) *KakaoProvider {
	p.endpoint = endpoint
	return p
}

func (p *KakaoProvider) Name() string { return "kakao" }

type kakaoResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration int     `json:"duration"`
		} `json:"summary"`
		Sections []struct {
			Roads []struct {
				Vertexes []float64 `json:"vertexes"`
			} `json:"roads"`
		} `json:"sections"`
	} `json:"routes"`
}

// Route computes a car route. Kakao expects "longitude,latitude" pairs and
// returns the geometry as flat vertex arrays of alternating lng/lat values.
func (p *KakaoProvider) Route(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error) {
	ctx, span := otel.Tracer("KakaoProvider").Start(ctx, "Route", trace.WithAttributes(
		attribute.Float64("origin.lat", origin.Lat),
		attribute.Float64("origin.lng", origin.Lng),
	))
	defer span.End()

	if p.restKey == "" {
		span.SetStatus(codes.Error, "API key missing")
		return nil, fmt.Errorf("kakao: %w", ErrMissingCredentials)
	}

	url := fmt.Sprintf("%s?origin=%f,%f&destination=%f,%f&priority=RECOMMEND",
		p.endpoint, origin.Lng, origin.Lat, destination.Lng, destination.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("kakao: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "KakaoAK "+p.restKey)
	req.Header.Set("Content-Type", "application/json")

	p.logger.InfoContext(ctx, "Kakao Mobility routing",
		slog.Float64("origin_lat", origin.Lat), slog.Float64("origin_lng", origin.Lng),
		slog.Float64("dest_lat", destination.Lat), slog.Float64("dest_lng", destination.Lng),
	)

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.Get().RouteProviderErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Request failed")
		return nil, fmt.Errorf("kakao: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		metrics.Get().RouteProviderErrorsTotal.Add(ctx, 1)
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		return nil, fmt.Errorf("kakao: HTTP %d: %s", resp.StatusCode, string(errBody))
	}

	var data kakaoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		metrics.Get().RouteProviderErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		return nil, fmt.Errorf("kakao: failed to decode response: %w", err)
	}

	if len(data.Routes) == 0 {
		span.SetStatus(codes.Error, "No routes")
		return nil, fmt.Errorf("kakao: %w", ErrRouteNotFound)
	}

	route := data.Routes[0]
	var path []types.LatLng
	for _, section := range route.Sections {
		for _, road := range section.Roads {
			for i := 0; i+1 < len(road.Vertexes); i += 2 {
				path = append(path, types.LatLng{
					Lng: road.Vertexes[i],
					Lat: road.Vertexes[i+1],
				})
			}
		}
	}

	info := &types.RouteInfo{
		DistanceMeters:  route.Summary.Distance,
		DurationSeconds: route.Summary.Duration,
		Path:            path,
	}

	span.SetAttributes(
		attribute.Float64("distance_m", info.DistanceMeters),
		attribute.Int("path_points", len(info.Path)),
	)
	span.SetStatus(codes.Ok, "Route computed")
	return info, nil
}
