package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	PlanRequestsTotal        metric.Int64Counter
	ModelCallDurationSeconds metric.Float64Histogram
	PlaceSearchErrorsTotal   metric.Int64Counter
	RouteCacheHitsTotal      metric.Int64Counter
	RouteCacheMissesTotal    metric.Int64Counter
	RouteProviderErrorsTotal metric.Int64Counter
	DbQueryErrorsTotal       metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("DaisyDatePlanner")
		var err error
		m := &AppMetrics{}

		m.PlanRequestsTotal, err = meter.Int64Counter(
			"plan_requests_total",
			metric.WithDescription("Total number of planning turns processed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_requests_total: %v", err)
		}

		m.ModelCallDurationSeconds, err = meter.Float64Histogram(
			"model_call_duration_seconds",
			metric.WithDescription("Duration of generative model calls in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create model_call_duration_seconds: %v", err)
		}

		m.PlaceSearchErrorsTotal, err = meter.Int64Counter(
			"place_search_errors_total",
			metric.WithDescription("Total number of failed place search calls"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create place_search_errors_total: %v", err)
		}

		m.RouteCacheHitsTotal, err = meter.Int64Counter(
			"route_cache_hits_total",
			metric.WithDescription("Total number of route cache hits"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create route_cache_hits_total: %v", err)
		}

		m.RouteCacheMissesTotal, err = meter.Int64Counter(
			"route_cache_misses_total",
			metric.WithDescription("Total number of route cache misses"),
			metric.WithUnit("{miss}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create route_cache_misses_total: %v", err)
		}

		m.RouteProviderErrorsTotal, err = meter.Int64Counter(
			"route_provider_errors_total",
			metric.WithDescription("Total number of failed routing provider calls"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create route_provider_errors_total: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
