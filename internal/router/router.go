package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/daisydate/go-date-course-planner/internal/api/places"
	"github.com/daisydate/go-date-course-planner/internal/api/planner"
	"github.com/daisydate/go-date-course-planner/internal/api/session"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	ChatHandler       planner.Handler
	PlaceHandler      places.Handler
	SessionHandler    session.Handler
	SessionMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Every API route runs behind the session middleware; the cookie is
		// issued on first contact.
		r.Use(cfg.SessionMiddleware)

		r.Post("/chat", cfg.ChatHandler.Chat)

		r.Get("/session", cfg.SessionHandler.GetSession)
		r.Delete("/session", cfg.SessionHandler.DeleteSession)
		r.Get("/context", cfg.SessionHandler.GetContext)
		r.Post("/context", cfg.SessionHandler.SaveContext)

		r.Get("/places/search", cfg.PlaceHandler.SearchByText)
		r.Get("/places/nearby", cfg.PlaceHandler.Nearby)
	})

	return r
}
