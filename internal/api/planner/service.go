package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/daisydate/go-date-course-planner/app/observability/metrics"
	"github.com/daisydate/go-date-course-planner/internal/api/places"
	"github.com/daisydate/go-date-course-planner/internal/types"
)

// Fixed responses for the greeting short-circuit and the catch-all error
// path. The apology is returned for every failure after the greeting check;
// the client never sees a raw error.
const (
	greetingResponse = "안녕하세요! 데이지입니다. 🌼\n오늘 데이트는 어느 지역에서 하실 계획인가요?"
	apologyResponse  = "죄송합니다. 처리 중 오류가 발생했습니다."
)

var (
	greetingReplies = []string{"강남", "홍대", "성수", "이태원"}
	retryReplies    = []string{"다시 시도"}
)

// AIClient is the model surface the planner needs. Declared here so tests
// can substitute a mock without touching the SDK-backed client.
type AIClient interface {
	GenerateContent(ctx context.Context, model, prompt string) (string, error)
}

// Options carries the planner tunables from configuration.
type Options struct {
	PlanningModel string
	ChatModel     string
	SearchLimit   int
	NearbyRadiusM float64
	NearbyLimit   int
}

// Service runs a full conversational planning turn.
type Service interface {
	GenerateDateCourse(ctx context.Context, req types.ChatRequest) *types.CourseResponse
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	ai           AIClient
	placeService places.Service
	enricher     *Enricher
	opts         Options
	logger       *slog.Logger
}

func NewServiceImpl(ai AIClient, placeService places.Service, enricher *Enricher, opts Options, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		ai:           ai,
		placeService: placeService,
		enricher:     enricher,
		opts:         opts,
		logger:       logger,
	}
}

// GenerateDateCourse is the chat-turn pipeline: greeting short-circuit,
// intent detection, candidate assembly for planning turns, the persona
// model call, and enrichment of any generated plans. It never returns an
// error; every failure degrades to the fixed apology response.
func (s *ServiceImpl) GenerateDateCourse(ctx context.Context, req types.ChatRequest) *types.CourseResponse {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "GenerateDateCourse", trace.WithAttributes(
		attribute.Int("history_len", len(req.History)),
		attribute.String("transport", string(req.TransportMode)),
	))
	defer span.End()

	if req.Message == GreetingSentinel {
		span.SetStatus(codes.Ok, "Greeting short-circuit")
		return &types.CourseResponse{
			ConversationResponse: greetingResponse,
			Plans:                []types.CoursePlan{},
			SuggestedReplies:     greetingReplies,
		}
	}

	metrics.Get().PlanRequestsTotal.Add(ctx, 1)

	transportMode := req.TransportMode
	if transportMode == "" {
		transportMode = types.TransportPublic
	}

	isPlanningRequest := DetectPlanningIntent(req.Message)
	modelName := s.opts.ChatModel
	intent := "Chat"
	if isPlanningRequest {
		modelName = s.opts.PlanningModel
		intent = "Planning"
	}
	s.logger.InfoContext(ctx, "Model selected",
		slog.String("model", modelName), slog.String("intent", intent))
	span.SetAttributes(attribute.String("model", modelName), attribute.String("intent", intent))

	historyText := formatHistory(req.History)

	searchContext := ""
	var candidates []types.Place
	if isPlanningRequest {
		searchContext, candidates = s.assembleCandidates(ctx, modelName, req.Message, req.SystemContext, historyText)
	}

	prompt := buildPlanningPrompt(req.Message, req.SystemContext, historyText, searchContext, transportMode, isPlanningRequest)

	start := time.Now()
	raw, err := s.ai.GenerateContent(ctx, modelName, prompt)
	metrics.Get().ModelCallDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("model", modelName)))
	if err != nil {
		s.logger.ErrorContext(ctx, "Planning model call failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Model call failed")
		return apology()
	}

	var response types.CourseResponse
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &response); err != nil {
		s.logger.ErrorContext(ctx, "Failed to parse model response", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unparseable model response")
		return apology()
	}

	if len(response.Plans) > 0 {
		s.enricher.EnrichPlans(ctx, response.Plans, candidates)
	}

	span.SetAttributes(attribute.Int("plans", len(response.Plans)))
	span.SetStatus(codes.Ok, "Turn completed")
	return &response
}

func apology() *types.CourseResponse {
	return &types.CourseResponse{
		ConversationResponse: apologyResponse,
		Plans:                []types.CoursePlan{},
		SuggestedReplies:     retryReplies,
	}
}

// assembleCandidates runs the search phase for a planning turn: derive
// queries, search them in parallel, fuse and persist the results, augment
// from the place store around the anchor, and serialize the pool for the
// prompt. Any failure in the phase yields the fallback context instead.
func (s *ServiceImpl) assembleCandidates(ctx context.Context, modelName, userMessage, systemContext, historyText string) (string, []types.Place) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "AssembleCandidates")
	defer span.End()

	queries, err := s.deriveQueries(ctx, modelName, userMessage, systemContext, historyText)
	if err != nil {
		s.logger.ErrorContext(ctx, "Search phase failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query derivation failed")
		return fallbackSearchContext, nil
	}
	s.logger.InfoContext(ctx, "Search queries generated", slog.Any("queries", queries))

	results := make([][]types.Place, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			results[i] = s.placeService.Search(gctx, q, s.opts.SearchLimit)
			return nil
		})
	}
	// Searches degrade to empty slices, never errors.
	_ = g.Wait()

	var flattened []types.Place
	for _, batch := range results {
		flattened = append(flattened, batch...)
	}
	if len(flattened) == 0 {
		s.logger.WarnContext(ctx, "Live search returned no candidates, using fallback context")
		span.SetStatus(codes.Error, "No live candidates")
		return fallbackSearchContext, nil
	}

	candidates := fuseCandidates(flattened)

	s.logger.InfoContext(ctx, "Persisting resolved places", slog.Int("count", len(candidates)))
	for _, p := range candidates {
		s.placeService.Persist(ctx, p)
	}

	anchor := flattened[0]
	cached := s.placeService.FindNearby(ctx, anchor.Location.Lat, anchor.Location.Lng, s.opts.NearbyRadiusM, s.opts.NearbyLimit)
	s.logger.InfoContext(ctx, "Augmented from place store", slog.Int("cached", len(cached)))
	candidates = mergeStored(candidates, cached)

	searchContext, err := buildSearchContext(candidates)
	if err != nil {
		s.logger.ErrorContext(ctx, "Search phase failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context serialization failed")
		return fallbackSearchContext, nil
	}

	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	span.SetStatus(codes.Ok, "Candidates assembled")
	return searchContext, candidates
}

// deriveQueries asks the model for search queries and parses the JSON array
// reply.
func (s *ServiceImpl) deriveQueries(ctx context.Context, modelName, userMessage, systemContext, historyText string) ([]string, error) {
	raw, err := s.ai.GenerateContent(ctx, modelName, buildQueryPrompt(userMessage, systemContext, historyText))
	if err != nil {
		return nil, fmt.Errorf("query derivation call failed: %w", err)
	}

	var queries []string
	if err := json.Unmarshal([]byte(cleanJSONArrayResponse(raw)), &queries); err != nil {
		return nil, fmt.Errorf("failed to parse derived queries: %w", err)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("model derived no search queries")
	}
	return queries, nil
}

// fuseCandidates deduplicates by place ID, last occurrence winning, while
// keeping first-seen order stable.
func fuseCandidates(flattened []types.Place) []types.Place {
	index := make(map[string]int, len(flattened))
	fused := make([]types.Place, 0, len(flattened))
	for _, p := range flattened {
		if at, seen := index[p.ID]; seen {
			fused[at] = p
			continue
		}
		index[p.ID] = len(fused)
		fused = append(fused, p)
	}
	return fused
}

// mergeStored appends store results that are not already in the live pool.
// Live results always win over stored ones.
func mergeStored(candidates, stored []types.Place) []types.Place {
	seen := make(map[string]struct{}, len(candidates))
	for _, p := range candidates {
		seen[p.ID] = struct{}{}
	}
	for _, p := range stored {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		candidates = append(candidates, p)
	}
	return candidates
}
