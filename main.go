package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/daisydate/go-date-course-planner/app/db"
	appLogger "github.com/daisydate/go-date-course-planner/app/logger"
	appMiddleware "github.com/daisydate/go-date-course-planner/app/middleware"
	"github.com/daisydate/go-date-course-planner/app/observability/metrics"
	"github.com/daisydate/go-date-course-planner/app/tracer"
	"github.com/daisydate/go-date-course-planner/config"
	generativeAI "github.com/daisydate/go-date-course-planner/internal/api/generative_ai"
	"github.com/daisydate/go-date-course-planner/internal/api/places"
	"github.com/daisydate/go-date-course-planner/internal/api/planner"
	"github.com/daisydate/go-date-course-planner/internal/api/routing"
	"github.com/daisydate/go-date-course-planner/internal/api/session"
	"github.com/daisydate/go-date-course-planner/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracer.InitTracingAndMetrics(cfg.Handlers.Prometheus.Port)
	metrics.InitAppMetrics()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Run migrations *before* initializing the main pool
	err = database.RunMigrations(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- External Clients ---
	aiClient, err := generativeAI.NewAIClient(ctx)
	if err != nil {
		logger.Error("Failed to initialize AI client", slog.Any("error", err))
		os.Exit(1)
	}

	externalTimeout := cfg.Planner.ExternalTimeout
	placesProvider := places.NewGooglePlacesProvider(os.Getenv("GOOGLE_PLACES_API_KEY"), externalTimeout, logger)

	routeChain := routing.NewChain(logger,
		routing.NewTMapProvider(os.Getenv("TMAP_APP_KEY"), externalTimeout, logger),
		routing.NewKakaoProvider(os.Getenv("KAKAO_REST_API_KEY"), externalTimeout, logger),
		routing.NewGoogleRoutesProvider(os.Getenv("GOOGLE_PLACES_API_KEY"), externalTimeout, logger),
	)

	// --- Dependency Injection ---
	placeRepo := places.NewRepository(pool, logger)
	placeService := places.NewServiceImpl(placesProvider, placeRepo, logger)
	placeHandler := places.NewHandlerImpl(placeService, logger)

	routeCacheRepo := routing.NewCacheRepository(pool, logger)
	routingService := routing.NewServiceImpl(routeCacheRepo, routeChain, logger)

	enricher := planner.NewEnricher(routingService, logger)
	plannerService := planner.NewServiceImpl(aiClient, placeService, enricher, planner.Options{
		PlanningModel: cfg.Planner.PlanningModel,
		ChatModel:     cfg.Planner.ChatModel,
		SearchLimit:   cfg.Planner.SearchLimit,
		NearbyRadiusM: float64(cfg.Planner.NearbyRadiusM),
		NearbyLimit:   cfg.Planner.NearbyLimit,
	}, logger)
	chatHandler := planner.NewHandlerImpl(plannerService, logger)

	sessionTTL := time.Duration(cfg.Session.ExpiryDays) * 24 * time.Hour
	cacheTTL := time.Duration(cfg.Session.CacheTTLDays) * 24 * time.Hour
	sessionRepo := session.NewRepositoryImpl(pool, logger)
	sessionService := session.NewServiceImpl(sessionRepo, sessionTTL, cacheTTL, logger)
	sessionHandler := session.NewHandlerImpl(sessionService, logger)
	sessionMiddleware := appMiddleware.NewSessionMiddleware(
		sessionService, cfg.Session.CookieName, sessionTTL, cfg.Mode == "production", logger,
	)

	go runSessionCleanup(ctx, sessionService, logger)

	// --- Router Setup ---
	mainRouter := router.SetupRouter(&router.Config{
		ChatHandler:       chatHandler,
		PlaceHandler:      placeHandler,
		SessionHandler:    sessionHandler,
		SessionMiddleware: sessionMiddleware.Handler,
	})

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(60 * time.Second))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// runSessionCleanup sweeps expired sessions and cache entries hourly.
func runSessionCleanup(ctx context.Context, sessionService session.Service, logger *slog.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessionService.CleanupExpired(ctx); err != nil {
				logger.ErrorContext(ctx, "Session cleanup failed", slog.Any("error", err))
			}
		}
	}
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		// JSON logs for production or other environments
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
