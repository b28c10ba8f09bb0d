package handler

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/idempotency"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/metrics"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	CORSOrigins []string
	// Idempotency enables Idempotency-Key replay on POST routes when set.
	Idempotency idempotency.Store
}

// NewRouter builds the chi router with the global middleware stack and all
// API routes.
func NewRouter(h *ReservationHandler, opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	r.Use(metrics.Middleware)
	if len(opts.CORSOrigins) > 0 {
		r.Use(CORS(opts.CORSOrigins))
	}

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	// POST routes replay stored responses by Idempotency-Key.
	r.Group(func(r chi.Router) {
		if opts.Idempotency != nil {
			r.Use(idempotency.Middleware(opts.Idempotency))
		}

		r.Route("/activities", func(r chi.Router) {
			r.Post("/", h.CreateActivity)
			r.Get("/", h.ListActivities)
			r.Get("/{id}", h.GetActivity)
			r.Put("/{id}", h.UpdateActivity)
			r.Delete("/{id}", h.DeleteActivity)
			r.Post("/{id}/register", h.Register)
			r.Get("/{id}/registrations", h.ListRegistrations)
		})

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/day/{date}", h.ActivitiesOnDate)
			r.Get("/{year}/{month}", h.MonthGrid)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/", h.CreateItem)
			r.Get("/", h.ListItems)
			r.Get("/{id}", h.GetItem)
			r.Put("/{id}", h.UpdateItem)
			r.Delete("/{id}", h.DeleteItem)
			r.Post("/{id}/borrow", h.Borrow)
		})

		r.Route("/borrowings", func(r chi.Router) {
			r.Get("/", h.ListBorrowings)
			r.Get("/{id}", h.GetBorrowing)
			r.Post("/{id}/approve", h.ApproveBorrowing)
			r.Post("/{id}/reject", h.RejectBorrowing)
			r.Post("/{id}/return", h.MarkReturned)
		})

		r.Post("/conflicts/check", h.CheckConflict)
	})

	return r
}
