package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/daisydate/go-date-course-planner/internal/api"
	"github.com/daisydate/go-date-course-planner/internal/types"
)

var (
	// ErrSessionNotFound means the session does not exist or has expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCacheEntryNotFound means no live cache entry exists for the key.
	ErrCacheEntryNotFound = errors.New("cache entry not found")
)

// Repository persists anonymous sessions and their per-session KV cache.
// Expiry is lazy: expired rows are deleted when read, and a periodic sweep
// handles the rest.
type Repository interface {
	CreateSession(ctx context.Context, ttl time.Duration) (*types.Session, error)
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)
	UpdateLastActive(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	SetCache(ctx context.Context, sessionID, cacheType, cacheKey string, data any, ttl time.Duration) error
	GetCache(ctx context.Context, sessionID, cacheType, cacheKey string, dst any) error
	ClearSessionCache(ctx context.Context, sessionID string) error
	ClearExpiredCache(ctx context.Context) (int64, error)
}

var _ Repository = (*RepositoryImpl)(nil)

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool api.DBQuerier
}

func NewRepositoryImpl(pgpool api.DBQuerier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *RepositoryImpl) CreateSession(ctx context.Context, ttl time.Duration) (*types.Session, error) {
	sessionID := uuid.New().String()
	now := time.Now()
	session := &types.Session{
		SessionID:  sessionID,
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(ttl),
	}

	query := `
        INSERT INTO sessions (session_id, created_at, last_active, expires_at)
        VALUES ($1, $2, $3, $4)
    `
	_, err := r.pgpool.Exec(ctx, query, session.SessionID, session.CreatedAt, session.LastActive, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	r.logger.InfoContext(ctx, "Created session", slog.String("session_id", sessionID))
	return session, nil
}

// GetSession returns the session if it exists and is still live. An expired
// row is deleted on the spot and reported as not found.
func (r *RepositoryImpl) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	query := `
        SELECT session_id, created_at, last_active, expires_at
        FROM sessions
        WHERE session_id = $1
    `
	var s types.Session
	err := r.pgpool.QueryRow(ctx, query, sessionID).Scan(&s.SessionID, &s.CreatedAt, &s.LastActive, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if s.ExpiresAt.Before(time.Now()) {
		r.logger.InfoContext(ctx, "Session expired, deleting", slog.String("session_id", sessionID))
		if delErr := r.DeleteSession(ctx, sessionID); delErr != nil {
			r.logger.ErrorContext(ctx, "Failed to delete expired session", slog.Any("error", delErr))
		}
		return nil, ErrSessionNotFound
	}

	return &s, nil
}

func (r *RepositoryImpl) UpdateLastActive(ctx context.Context, sessionID string) error {
	query := `UPDATE sessions SET last_active = now() WHERE session_id = $1`
	_, err := r.pgpool.Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) DeleteSession(ctx context.Context, sessionID string) error {
	query := `DELETE FROM sessions WHERE session_id = $1`
	_, err := r.pgpool.Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < now()`
	tag, err := r.pgpool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetCache upserts a cache entry keyed by (session, type, key) with a fresh
// TTL.
func (r *RepositoryImpl) SetCache(ctx context.Context, sessionID, cacheType, cacheKey string, data any, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	query := `
        INSERT INTO session_cache (session_id, cache_type, cache_key, cache_data, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (session_id, cache_type, cache_key)
        DO UPDATE SET cache_data = EXCLUDED.cache_data, expires_at = EXCLUDED.expires_at, created_at = now()
    `
	_, err = r.pgpool.Exec(ctx, query, sessionID, cacheType, cacheKey, payload, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// GetCache loads a cache entry into dst. Expired entries are deleted and
// reported as not found.
func (r *RepositoryImpl) GetCache(ctx context.Context, sessionID, cacheType, cacheKey string, dst any) error {
	query := `
        SELECT cache_data, expires_at
        FROM session_cache
        WHERE session_id = $1 AND cache_type = $2 AND cache_key = $3
    `
	var payload []byte
	var expiresAt time.Time
	err := r.pgpool.QueryRow(ctx, query, sessionID, cacheType, cacheKey).Scan(&payload, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCacheEntryNotFound
		}
		return fmt.Errorf("failed to query cache entry: %w", err)
	}

	if expiresAt.Before(time.Now()) {
		delQuery := `DELETE FROM session_cache WHERE session_id = $1 AND cache_type = $2 AND cache_key = $3`
		if _, delErr := r.pgpool.Exec(ctx, delQuery, sessionID, cacheType, cacheKey); delErr != nil {
			r.logger.ErrorContext(ctx, "Failed to delete expired cache entry", slog.Any("error", delErr))
		}
		return ErrCacheEntryNotFound
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) ClearSessionCache(ctx context.Context, sessionID string) error {
	query := `DELETE FROM session_cache WHERE session_id = $1`
	_, err := r.pgpool.Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear session cache: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) ClearExpiredCache(ctx context.Context) (int64, error) {
	query := `DELETE FROM session_cache WHERE expires_at < now()`
	tag, err := r.pgpool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
