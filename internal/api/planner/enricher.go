package planner

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/daisydate/go-date-course-planner/internal/api/routing"
	"github.com/daisydate/go-date-course-planner/internal/types"
)

// Enricher finishes generated plans with ground-truth data: candidate
// details overwrite whatever the model emitted, and leg geometry comes from
// the routing service. Enrichment never fails a plan; a leg that cannot be
// routed degrades to a straight line.
type Enricher struct {
	routingService routing.Service
	logger         *slog.Logger
}

func NewEnricher(routingService routing.Service, logger *slog.Logger) *Enricher {
	return &Enricher{
		routingService: routingService,
		logger:         logger,
	}
}

// EnrichPlans mutates plans in place. candidates is the fused pool from the
// search phase, keyed by provider place ID during enrichment.
func (e *Enricher) EnrichPlans(ctx context.Context, plans []types.CoursePlan, candidates []types.Place) {
	ctx, span := otel.Tracer("PlanEnricher").Start(ctx, "EnrichPlans")
	defer span.End()

	byID := make(map[string]types.Place, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	for pi := range plans {
		plan := &plans[pi]
		e.enrichDetails(plan, byID)
		e.enrichRoutes(ctx, plan)
	}

	span.SetAttributes(attribute.Int("plans", len(plans)))
	span.SetStatus(codes.Ok, "Plans enriched")
}

// enrichDetails overwrites model-emitted detail fields with the candidate's
// resolved data. The candidate location replaces the step location so the
// map pin and route endpoints are exact.
func (e *Enricher) enrichDetails(plan *types.CoursePlan, byID map[string]types.Place) {
	for si := range plan.Steps {
		step := &plan.Steps[si]
		if step.Detail == nil || step.Detail.GooglePlaceID == "" {
			continue
		}
		original, ok := byID[step.Detail.GooglePlaceID]
		if !ok {
			e.logger.Warn("Plan step references unknown place",
				slog.String("plan_id", plan.ID),
				slog.String("place_name", step.PlaceName),
				slog.String("place_id", step.Detail.GooglePlaceID),
			)
			continue
		}
		if original.PhotoURL != nil {
			step.Detail.ImageURL = *original.PhotoURL
		}
		step.Detail.Rating = original.Rating
		step.Detail.ReviewCount = original.UserRatingCount
		step.Location = original.Location
	}
}

// enrichRoutes resolves geometry for every consecutive step pair. Distance
// and time land on the arriving step; the path lands on the departing step.
func (e *Enricher) enrichRoutes(ctx context.Context, plan *types.CoursePlan) {
	for i := 0; i < len(plan.Steps)-1; i++ {
		from := plan.Steps[i].Location
		to := plan.Steps[i+1].Location
		if !from.Valid() || !to.Valid() {
			continue
		}

		info, err := e.routingService.GetOrFetchRoute(ctx, from, to)
		if err != nil {
			e.logger.WarnContext(ctx, "No route for leg, using straight line",
				slog.String("plan_id", plan.ID),
				slog.Int("leg", i),
				slog.Any("error", err),
			)
			plan.Steps[i].PathToNext = []types.LatLng{from, to}
			continue
		}

		plan.Steps[i+1].DistanceFromPrev = fmt.Sprintf("%.1fkm", info.DistanceMeters/1000)
		plan.Steps[i+1].TimeFromPrev = fmt.Sprintf("%d분", int(math.Ceil(float64(info.DurationSeconds)/60)))
		if len(info.Path) > 0 {
			plan.Steps[i].PathToNext = info.Path
		}
	}
}
