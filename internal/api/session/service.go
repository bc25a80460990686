package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/daisydate/go-date-course-planner/internal/types"
)

// Cache keys for the per-session UI state, all under the "context" cache
// type.
const (
	cacheTypeContext   = "context"
	keyUserContext     = "user_context"
	keyChatHistory     = "chat_history"
	keyChatSuggestions = "chat_suggestions"
	keyCoursePlans     = "course_plans"
	keySelectedPlanID  = "selected_plan_id"
)

// ContextUpdate is a partial update of the per-session UI state. Nil fields
// are left untouched; non-nil fields overwrite the stored value.
type ContextUpdate struct {
	Context        map[string]any          `json:"context,omitempty"`
	History        *[]types.HistoryMessage `json:"history,omitempty"`
	Suggestions    *[]string               `json:"suggestions,omitempty"`
	Plans          *[]types.CoursePlan     `json:"plans,omitempty"`
	SelectedPlanID *string                 `json:"selectedPlanId,omitempty"`
}

// Service manages anonymous sessions and the UI state stored against them.
type Service interface {
	CreateOrGet(ctx context.Context, cookieSessionID string) (*types.Session, error)
	Get(ctx context.Context, sessionID string) (*types.Session, error)
	Delete(ctx context.Context, sessionID string) error
	SaveContext(ctx context.Context, sessionID string, update ContextUpdate) error
	GetUserContext(ctx context.Context, sessionID string) (map[string]any, error)
	GetSnapshot(ctx context.Context, sessionID string) (*types.SessionContext, error)
	CleanupExpired(ctx context.Context) error
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	repo       Repository
	sessionTTL time.Duration
	cacheTTL   time.Duration
	logger     *slog.Logger
}

func NewServiceImpl(repo Repository, sessionTTL, cacheTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:       repo,
		sessionTTL: sessionTTL,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// CreateOrGet resolves the cookie's session if it is still live, refreshing
// its last-active timestamp, and creates a fresh session otherwise.
func (s *ServiceImpl) CreateOrGet(ctx context.Context, cookieSessionID string) (*types.Session, error) {
	ctx, span := otel.Tracer("SessionService").Start(ctx, "CreateOrGet")
	defer span.End()

	if cookieSessionID != "" {
		existing, err := s.repo.GetSession(ctx, cookieSessionID)
		if err == nil {
			// Refresh failure is non-critical.
			if refreshErr := s.repo.UpdateLastActive(ctx, cookieSessionID); refreshErr != nil {
				s.logger.WarnContext(ctx, "Failed to refresh session", slog.Any("error", refreshErr))
			}
			span.SetAttributes(attribute.Bool("created", false))
			span.SetStatus(codes.Ok, "Existing session")
			return existing, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Session lookup failed")
			return nil, err
		}
	}

	created, err := s.repo.CreateSession(ctx, s.sessionTTL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Session creation failed")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("created", true))
	span.SetStatus(codes.Ok, "Session created")
	return created, nil
}

func (s *ServiceImpl) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	return s.repo.GetSession(ctx, sessionID)
}

func (s *ServiceImpl) Delete(ctx context.Context, sessionID string) error {
	ctx, span := otel.Tracer("SessionService").Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("session_id", sessionID),
	))
	defer span.End()

	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Session deletion failed")
		return err
	}
	span.SetStatus(codes.Ok, "Session deleted")
	return nil
}

// SaveContext persists the provided fields of the update, each under its
// own cache key so partial updates never clobber unrelated state.
func (s *ServiceImpl) SaveContext(ctx context.Context, sessionID string, update ContextUpdate) error {
	ctx, span := otel.Tracer("SessionService").Start(ctx, "SaveContext")
	defer span.End()

	set := func(key string, value any) error {
		return s.repo.SetCache(ctx, sessionID, cacheTypeContext, key, value, s.cacheTTL)
	}

	if update.Context != nil {
		if err := set(keyUserContext, update.Context); err != nil {
			return fmt.Errorf("failed to save user context: %w", err)
		}
	}
	if update.History != nil {
		if err := set(keyChatHistory, *update.History); err != nil {
			return fmt.Errorf("failed to save chat history: %w", err)
		}
	}
	if update.Suggestions != nil {
		if err := set(keyChatSuggestions, *update.Suggestions); err != nil {
			return fmt.Errorf("failed to save suggestions: %w", err)
		}
	}
	if update.Plans != nil {
		if err := set(keyCoursePlans, *update.Plans); err != nil {
			return fmt.Errorf("failed to save plans: %w", err)
		}
	}
	if update.SelectedPlanID != nil {
		if err := set(keySelectedPlanID, *update.SelectedPlanID); err != nil {
			return fmt.Errorf("failed to save selected plan: %w", err)
		}
	}

	span.SetStatus(codes.Ok, "Context saved")
	return nil
}

func (s *ServiceImpl) GetUserContext(ctx context.Context, sessionID string) (map[string]any, error) {
	var userContext map[string]any
	err := s.repo.GetCache(ctx, sessionID, cacheTypeContext, keyUserContext, &userContext)
	if err != nil {
		if errors.Is(err, ErrCacheEntryNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return userContext, nil
}

// GetSnapshot loads the full per-session UI state. Missing entries are
// returned as their zero values.
func (s *ServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*types.SessionContext, error) {
	ctx, span := otel.Tracer("SessionService").Start(ctx, "GetSnapshot")
	defer span.End()

	snapshot := &types.SessionContext{}

	load := func(key string, dst any) error {
		err := s.repo.GetCache(ctx, sessionID, cacheTypeContext, key, dst)
		if err != nil && !errors.Is(err, ErrCacheEntryNotFound) {
			return err
		}
		return nil
	}

	if err := load(keyUserContext, &snapshot.Context); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := load(keyChatHistory, &snapshot.History); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := load(keyChatSuggestions, &snapshot.Suggestions); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := load(keyCoursePlans, &snapshot.Plans); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := load(keySelectedPlanID, &snapshot.SelectedPlanID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Snapshot loaded")
	return snapshot, nil
}

// CleanupExpired sweeps expired sessions and cache entries. Intended to run
// periodically from the server loop.
func (s *ServiceImpl) CleanupExpired(ctx context.Context) error {
	sessions, err := s.repo.DeleteExpiredSessions(ctx)
	if err != nil {
		return err
	}
	entries, err := s.repo.ClearExpiredCache(ctx)
	if err != nil {
		return err
	}
	if sessions > 0 || entries > 0 {
		s.logger.InfoContext(ctx, "Expired session data removed",
			slog.Int64("sessions", sessions), slog.Int64("cache_entries", entries))
	}
	return nil
}
