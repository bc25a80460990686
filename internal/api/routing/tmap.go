package routing

import (
	"bytes"
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

const defaultTMapEndpoint = "https://apis.openapi.sk.com/tmap/routes/pedestrian?version=1&format=json"

var _ Provider = (*TMapProvider)(nil)

// TMapProvider computes pedestrian routes via the TMap routing API.
type TMapProvider struct {
	appKey   string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewTMapProvider(appKey string, timeout time.Duration, logger *slog.Logger) *TMapProvider {
	return &TMapProvider{
		appKey:   appKey,
		endpoint: defaultTMapEndpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// WithEndpoint overrides the API endpoint. Used in tests.
func (p *TMapProvider) WithEndpoint(endpoint string) *TMapProvider {
	p.endpoint = endpoint
	return p
}

func (p *TMapProvider) Name() string { return "tmap" }

type tmapRequest struct {
	StartX       float64 `json:"startX"`
	StartY       float64 `json:"startY"`
	EndX         float64 `json:"endX"`
	EndY         float64 `json:"endY"`
	ReqCoordType string  `json:"reqCoordType"`
	ResCoordType string  `json:"resCoordType"`
	StartName    string  `json:"startName"`
	EndName      string  `json:"endName"`
}

type tmapResponse struct {
	Features []struct {
		Geometry struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			TotalDistance float64 `json:"totalDistance"`
			TotalTime     int     `json:"totalTime"`
		} `json:"properties"`
	} `json:"features"`
}

// Route computes a pedestrian route. TMap expects X=longitude, Y=latitude;
// the path is the concatenation of all LineString features, and the totals
// come from the first feature's properties.
func (p *TMapProvider) Route(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error) {
	ctx, span := otel.Tracer("TMapProvider").Start(ctx, "Route", trace.WithAttributes(
		attribute.Float64("origin.lat", origin.Lat),
		attribute.Float64("origin.lng", origin.Lng),
	))
	defer span.End()

	if p.appKey == "" {
		span.SetStatus(codes.Error, "API key missing")
		return nil, fmt.Errorf("tmap: %w", ErrMissingCredentials)
	}

	body, err := json.Marshal(tmapRequest{
		StartX:       origin.Lng,
		StartY:       origin.Lat,
		EndX:         destination.Lng,
		EndY:         destination.Lat,
		ReqCoordType: "WGS84GEO",
		ResCoordType: "WGS84GEO",
		StartName:    "Origin",
		EndName:      "Destination",
	})
	if err != nil {
		return nil, fmt.Errorf("tmap: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tmap: failed to build request: %w", err)
	}
	req.Header.Set("appKey", p.appKey)
	req.Header.Set("Content-Type", "application/json")

	p.logger.InfoContext(ctx, "TMap routing",
		slog.Float64("origin_lat", origin.Lat), slog.Float64("origin_lng", origin.Lng),
		slog.Float64("dest_lat", destination.Lat), slog.Float64("dest_lng", destination.Lng),
	)

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.Get().RouteProviderErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Request failed")
		return nil, fmt.Errorf("tmap: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		metrics.Get().RouteProviderErrorsTotal.Add(ctx, 1)
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		return nil, fmt.Errorf("tmap: HTTP %d: %s", resp.StatusCode, string(errBody))
	}

	var data tmapResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		metrics.Get().RouteProviderErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		return nil, fmt.Errorf("tmap: failed to decode response: %w", err)
	}

	if len(data.Features) == 0 {
		span.SetStatus(codes.Error, "No features")
		return nil, fmt.Errorf("tmap: %w", ErrRouteNotFound)
	}

	var path []types.LatLng
	for _, feature := range data.Features {
		if feature.Geometry.Type != "LineString" {
			continue
		}
		var coords [][]float64
		if err := json.Unmarshal(feature.Geometry.Coordinates, &coords); err != nil {
			continue
		}
		for _, coord := range coords {
			if len(coord) < 2 {
				continue
			}
			path = append(path, types.LatLng{Lng: coord[0], Lat: coord[1]})
		}
	}

	// Totals live on the first feature (the start point).
	info := &types.RouteInfo{
		DistanceMeters:  data.Features[0].Properties.TotalDistance,
		DurationSeconds: data.Features[0].Properties.TotalTime,
		Path:            path,
	}

	span.SetAttributes(
		attribute.Float64("distance_m", info.DistanceMeters),
		attribute.Int("path_points", len(info.Path)),
	)
	span.SetStatus(codes.Ok, "Route computed")
	return info, nil
}
