package session

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/daisydate/go-date-course-planner/internal/api"
)

type Handler interface {
	GetSession(w http.ResponseWriter, r *http.Request)
	DeleteSession(w http.ResponseWriter, r *http.Request)
	GetContext(w http.ResponseWriter, r *http.Request)
	SaveContext(w http.ResponseWriter, r *http.Request)
}

var _ Handler = (*HandlerImpl)(nil)

type HandlerImpl struct {
	sessionService Service
	logger         *slog.Logger
}

func NewHandlerImpl(sessionService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		sessionService: sessionService,
		logger:         logger,
	}
}

// sessionID pulls the session ID resolved by the session middleware. The
// middleware guarantees it is present on every route below; an empty value
// means the route was mounted without it.
func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(IDContextKey).(string)
	return id
}

// GetSession handles GET /session.
func (h *HandlerImpl) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("HandlerImpl").Start(r.Context(), "GetSession", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/session"),
	))
	defer span.End()

	s, err := h.sessionService.Get(ctx, sessionID(r))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to load session", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve session")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, s)
}

// DeleteSession handles DELETE /session.
func (h *HandlerImpl) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("HandlerImpl").Start(r.Context(), "DeleteSession", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/session"),
	))
	defer span.End()

	if err := h.sessionService.Delete(ctx, sessionID(r)); err != nil {
		h.logger.ErrorContext(ctx, "Failed to delete session", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"message": "Session deleted",
	})
}

// GetContext handles GET /context?type=. With type=history the full UI
// snapshot is returned; otherwise just the onboarding context.
func (h *HandlerImpl) GetContext(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("HandlerImpl").Start(r.Context(), "GetContext", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/context"),
	))
	defer span.End()

	id := sessionID(r)

	if r.URL.Query().Get("type") == "history" {
		snapshot, err := h.sessionService.GetSnapshot(ctx, id)
		if err != nil {
			h.logger.ErrorContext(ctx, "Failed to load session snapshot", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve data")
			return
		}
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
			"history":        orEmpty(snapshot.History),
			"suggestions":    orEmpty(snapshot.Suggestions),
			"plans":          orEmpty(snapshot.Plans),
			"selectedPlanId": nullableString(snapshot.SelectedPlanID),
		})
		return
	}

	userContext, err := h.sessionService.GetUserContext(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to load user context", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve data")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"context": userContext,
	})
}

// SaveContext handles POST /context with a partial state update.
func (h *HandlerImpl) SaveContext(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("HandlerImpl").Start(r.Context(), "SaveContext", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/context"),
	))
	defer span.End()

	var update ContextUpdate
	if err := api.DecodeJSONBody(w, r, &update); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessionService.SaveContext(ctx, sessionID(r), update); err != nil {
		h.logger.ErrorContext(ctx, "Failed to save context", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to save data")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
