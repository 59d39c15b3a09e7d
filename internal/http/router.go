package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/event-registrations/internal/auth"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/idempotency"
	"github.com/robertarktes/event-registrations/internal/observability"
	"github.com/robertarktes/event-registrations/internal/rateLimit"
)

// RouterDeps carries the optional cross-cutting collaborators. A nil rate
// limiter or idempotency cache disables that middleware.
type RouterDeps struct {
	Logger      observability.Logger
	Auth        *auth.Service
	RateLimiter *rateLimit.RateLimiter
	Idempotency *idempotency.Idempotency
}

func SetupRouter(h *Handlers, deps RouterDeps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(RateLimitMiddleware(deps.RateLimiter))
		}

		// Credentials are never recorded for replay.
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			if deps.Idempotency != nil {
				r.Use(IdempotencyMiddleware(deps.Idempotency))
			}

			r.Post("/register", h.Register)
			r.Post("/create-order", h.CreateOrder)
			r.Post("/payment-success", h.PaymentSuccess)
			r.Get("/ticket/{ticketId}", h.Ticket)
			r.Get("/my-tickets", h.MyTickets)
			r.Get("/payment-key", h.PaymentKey)
			r.Post("/instamojo/create-payment", h.StartHostedCheckout)
			r.Get("/instamojo/callback", h.HostedCheckoutCallback)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(Authenticate(deps.Auth))
			r.Use(RequireRole(domain.RoleAdmin))
			r.Use(middleware.Compress(5))
			if deps.Idempotency != nil {
				r.Use(IdempotencyMiddleware(deps.Idempotency))
			}

			r.Get("/registrations", h.AdminRegistrations)
			r.Delete("/registrations", h.AdminDeleteAll)
			r.Post("/verify-payment", h.AdminVerifyPayment)
			r.Delete("/registration/{id}", h.AdminDeleteRegistration)
			r.Get("/export", h.AdminExport)
			r.Get("/audit", h.AdminAudit)
		})
	})

	return r
}
