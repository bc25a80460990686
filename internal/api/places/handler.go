package places

import (
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/daisydate/go-date-course-planner/internal/api"
)

type Handler interface {
	SearchByText(w http.ResponseWriter, r *http.Request)
	Nearby(w http.ResponseWriter, r *http.Request)
}

var _ Handler = (*HandlerImpl)(nil)

type HandlerImpl struct {
	placeService Service
	logger       *slog.Logger
}

func NewHandlerImpl(placeService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		placeService: placeService,
		logger:       logger,
	}
}

// SearchByText handles GET /places/search?q=
func (h *HandlerImpl) SearchByText(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("HandlerImpl").Start(r.Context(), "SearchByText", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/places/search"),
	))
	defer span.End()

	q := r.URL.Query().Get("q")
	if q == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	results := h.placeService.SearchByText(ctx, q)
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"places": results,
	})
}

// Nearby handles GET /places/nearby?lat=&lng=&radius=&limit=
func (h *HandlerImpl) Nearby(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("HandlerImpl").Start(r.Context(), "Nearby", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/places/nearby"),
	))
	defer span.End()

	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid 'lat' parameter")
		return
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid 'lng' parameter")
		return
	}

	radius := 2000.0
	if v := r.URL.Query().Get("radius"); v != "" {
		radius, err = strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid 'radius' parameter")
			return
		}
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
	}

	results := h.placeService.FindNearby(ctx, lat, lng, radius, limit)
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"places": results,
	})
}
