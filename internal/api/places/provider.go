package places

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

const (
	defaultSearchEndpoint = "https://places.googleapis.com/v1/places:searchText"
	photoMaxWidthPx       = 400

	// Request only needed fields to save costs/latency.
	searchFieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
		"places.rating,places.userRatingCount,places.photos,places.types," +
		"places.regularOpeningHours.openNow,places.regularOpeningHours.weekdayDescriptions," +
		"places.priceLevel,places.websiteUri"
)

// Provider resolves free-text queries into real-world place candidates.
type Provider interface {
	Search(ctx context.Context, query string, limit int) []types.Place
}

var _ Provider = (*GooglePlacesProvider)(nil)

// GooglePlacesProvider wraps the Google Places Text Search (New) API.
// Provider failures never propagate: a failed search is logged and returns
// an empty candidate list, because a partial candidate set is preferable
// to aborting the whole plan.
type GooglePlacesProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewGooglePlacesProvider(apiKey string, timeout time.Duration, logger *slog.Logger) *GooglePlacesProvider {
	return &GooglePlacesProvider{
		apiKey:   apiKey,
		endpoint: defaultSearchEndpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// WithEndpoint overrides the search endpoint. Used in tests.
func (p *GooglePlacesProvider) WithEndpoint(endpoint string) *GooglePlacesProvider {
	p.endpoint = endpoint
	return p
}

type searchTextRequest struct {
	TextQuery      string `json:"textQuery"`
	LanguageCode   string `json:"languageCode"`
	MaxResultCount int    `json:"maxResultCount"`
}

type searchTextResponse struct {
	Places []googlePlace `json:"places"`
}

type googlePlace struct {
	ID          string `json:"id"`
	DisplayName *struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Rating          *float64 `json:"rating"`
	UserRatingCount *int     `json:"userRatingCount"`
	Photos          []struct {
		Name string `json:"name"`
	} `json:"photos"`
	Types               []string `json:"types"`
	RegularOpeningHours *struct {
		OpenNow             *bool    `json:"openNow"`
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"regularOpeningHours"`
	WebsiteURI *string `json:"websiteUri"`
}

// Search returns up to limit place candidates for the query. On any provider
// error it returns an empty list.
func (p *GooglePlacesProvider) Search(ctx context.Context, query string, limit int) []types.Place {
	ctx, span := otel.Tracer("GooglePlacesProvider").Start(ctx, "Search", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Int("limit", limit),
	))
	defer span.End()

	if p.apiKey == "" {
		p.logger.WarnContext(ctx, "GOOGLE_PLACES_API_KEY missing, skipping search")
		span.SetStatus(codes.Error, "API key missing")
		return nil
	}

	body, err := json.Marshal(searchTextRequest{
		TextQuery:      query,
		LanguageCode:   "ko",
		MaxResultCount: limit,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to marshal search request", slog.Any("error", err))
		span.RecordError(err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to build search request", slog.Any("error", err))
		span.RecordError(err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", p.apiKey)
	req.Header.Set("X-Goog-FieldMask", searchFieldMask)

	p.logger.InfoContext(ctx, "Searching Google Places", slog.String("query", query))

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.ErrorContext(ctx, "Place search call failed", slog.Any("error", err), slog.String("query", query))
		metrics.Get().PlaceSearchErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Search request failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		p.logger.ErrorContext(ctx, "Place search returned error status",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(errBody)),
		)
		metrics.Get().PlaceSearchErrorsTotal.Add(ctx, 1)
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		return nil
	}

	var data searchTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		p.logger.ErrorContext(ctx, "Failed to decode search response", slog.Any("error", err))
		metrics.Get().PlaceSearchErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		return nil
	}

	results := make([]types.Place, 0, len(data.Places))
	for _, gp := range data.Places {
		results = append(results, p.mapPlace(gp, query))
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	span.SetStatus(codes.Ok, "Search completed")
	return results
}

func (p *GooglePlacesProvider) mapPlace(gp googlePlace, query string) types.Place {
	title := query
	if gp.DisplayName != nil && gp.DisplayName.Text != "" {
		title = gp.DisplayName.Text
	}

	place := types.Place{
		ID:      gp.ID,
		Title:   title,
		Address: gp.FormattedAddress,
		Location: types.LatLng{
			Lat: gp.Location.Latitude,
			Lng: gp.Location.Longitude,
		},
		Rating:          gp.Rating,
		UserRatingCount: gp.UserRatingCount,
		Website:         gp.WebsiteURI,
	}

	if len(gp.Types) > 0 {
		place.Category = &gp.Types[0]
	}
	if len(gp.Photos) > 0 {
		// Construct photo media URL (max width 400px)
		photoURL := fmt.Sprintf("https://places.googleapis.com/v1/%s/media?key=%s&maxWidthPx=%d",
			gp.Photos[0].Name, p.apiKey, photoMaxWidthPx)
		place.PhotoURL = &photoURL
	}
	if gp.RegularOpeningHours != nil {
		place.OpenNow = gp.RegularOpeningHours.OpenNow
		place.OpeningHours = gp.RegularOpeningHours.WeekdayDescriptions
	}

	return place
}
