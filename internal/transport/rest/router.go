package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/towerly/building-service/internal/domain"
	"github.com/towerly/building-service/internal/metrics"
	"github.com/towerly/building-service/internal/security"
)

type RouterDeps struct {
	Handler  *Handler
	Verifier security.AccessTokenVerifier
	Users    domain.UserRepository
	Cache    domain.CacheRepository

	JWTIssuer string

	RateLimitEnabled bool
	RateLimitMax     int
	RateLimitWindow  time.Duration
}

func NewRouter(deps RouterDeps) http.Handler {
	if deps.Handler == nil {
		panic("NewRouter: nil handler")
	}
	if deps.Verifier == nil {
		panic("NewRouter: nil verifier")
	}
	if deps.Users == nil {
		panic("NewRouter: nil user repository")
	}

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(HTTPLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(Metrics())
	if deps.RateLimitEnabled && deps.Cache != nil {
		r.Use(RateLimitMiddleware(deps.Cache, deps.RateLimitMax, deps.RateLimitWindow))
	}
	r.Use(SecurityHeaders)

	h := deps.Handler

	// Public surface.
	r.Get("/", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/apartments", h.ListApartments)

	r.Post("/users", h.UpsertUser)
	r.Get("/users", h.ListUsers)
	r.Get("/users/role/{email}", h.GetUserRole)
	r.Get("/members", h.ListMembers)

	r.Post("/agreements", h.SubmitAgreement)
	r.Get("/agreements/user/{email}", h.ListAgreementsByEmail)

	r.Get("/announcements", h.ListAnnouncements)

	r.Post("/coupons", h.CreateCoupon)
	r.Get("/coupons", h.ListCoupons)
	r.Put("/coupons/{code}/deactivate", h.DeactivateCoupon)

	r.Post("/create-payment-intent", h.CreatePaymentIntent)

	// Authenticated surface. Role checks are exact: admin routes demand
	// admin, member routes demand member, no hierarchy between them.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Verifier, AuthOptions{ExpectedIssuer: deps.JWTIssuer}))

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(deps.Users, domain.RoleAdmin))

			r.Get("/agreements/requests", h.ListPendingAgreements)
			r.Patch("/agreements/requests/{id}", h.DecideAgreement)
			r.Patch("/members/{email}/role", h.ChangeMemberRole)
			r.Post("/announcements", h.CreateAnnouncement)
			r.Put("/coupons/{id}/availability", h.SetCouponAvailability)
			r.Get("/admin-stats", h.AdminStats)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(deps.Users, domain.RoleMember))

			r.Post("/payments", h.RecordPayment)
			r.Get("/payments", h.ListPayments)
			r.Get("/payments/user/{email}", h.ListPaymentsByUser)
		})
	})

	return r
}
