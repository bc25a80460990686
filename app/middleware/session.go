package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/daisydate/go-date-course-planner/internal/api"
	"github.com/daisydate/go-date-course-planner/internal/api/session"
)

// SessionMiddleware guarantees every request carries a live session: the
// cookie's session is resolved if still valid, a fresh one is created
// otherwise, and the cookie is (re)issued either way. The session ID is
// injected into the request context under session.IDContextKey.
type SessionMiddleware struct {
	sessionService session.Service
	cookieName     string
	cookieTTL      time.Duration
	secure         bool
	logger         *slog.Logger
}

func NewSessionMiddleware(sessionService session.Service, cookieName string, cookieTTL time.Duration, secure bool, logger *slog.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		sessionService: sessionService,
		cookieName:     cookieName,
		cookieTTL:      cookieTTL,
		secure:         secure,
		logger:         logger,
	}
}

func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookieSessionID := ""
		if cookie, err := r.Cookie(m.cookieName); err == nil {
			cookieSessionID = cookie.Value
		}

		s, err := m.sessionService.CreateOrGet(r.Context(), cookieSessionID)
		if err != nil {
			m.logger.ErrorContext(r.Context(), "Session resolution failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to establish session")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    s.SessionID,
			Path:     "/",
			MaxAge:   int(m.cookieTTL.Seconds()),
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithValue(r.Context(), session.IDContextKey, s.SessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
