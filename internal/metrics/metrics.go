// Package metrics exposes Prometheus collectors for the reservation core.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RegistrationsTotal counts successful activity registrations.
	RegistrationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_registrations_total",
			Help: "Total number of successful activity registrations",
		},
	)

	// BorrowingTransitions counts borrowing requests entering each status.
	BorrowingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_borrowing_transitions_total",
			Help: "Borrowing requests entering a status",
		},
		[]string{"status"},
	)

	// DomainErrors counts rejected operations by error kind.
	DomainErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_domain_errors_total",
			Help: "Operations rejected by a domain rule, by error kind",
		},
		[]string{"operation", "kind"},
	)

	// PublishFailures counts facts that could not be delivered to the bus.
	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_publish_failures_total",
			Help: "Facts that could not be published",
		},
		[]string{"routing_key"},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)

	// CalendarCacheHits counts month grids served from cache.
	CalendarCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_calendar_cache_hits_total",
			Help: "Month grids served from cache",
		},
	)
)

// BreakerStateValue maps a gobreaker state to the CircuitBreakerState gauge.
func BreakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
