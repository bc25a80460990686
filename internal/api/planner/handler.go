package planner

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/daisydate/go-date-course-planner/internal/api"
	"github.com/daisydate/go-date-course-planner/internal/types"
)

type Handler interface {
	Chat(w http.ResponseWriter, r *http.Request)
}

var _ Handler = (*HandlerImpl)(nil)

type HandlerImpl struct {
	plannerService Service
	logger         *slog.Logger
}

func NewHandlerImpl(plannerService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		plannerService: plannerService,
		logger:         logger,
	}
}

// Chat handles POST /chat. The response is always 200 with a well-formed
// CourseResponse; pipeline failures surface as the apology payload, not as
// HTTP errors.
func (h *HandlerImpl) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("HandlerImpl").Start(r.Context(), "Chat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat"),
	))
	defer span.End()

	var req types.ChatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Field 'message' is required")
		return
	}

	response := h.plannerService.GenerateDateCourse(ctx, req)
	api.WriteJSONResponse(w, r, http.StatusOK, response)
}
