package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hamzaiqbal/crmconnect/internal/api/handlers"
	"github.com/hamzaiqbal/crmconnect/internal/api/middleware"
	"github.com/hamzaiqbal/crmconnect/internal/auth"
	"github.com/hamzaiqbal/crmconnect/internal/channel"
	"github.com/hamzaiqbal/crmconnect/internal/config"
	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/otp"
	"github.com/hamzaiqbal/crmconnect/internal/tenant"
	"github.com/hamzaiqbal/crmconnect/internal/webhook"
)

// Deps carries the wired services the HTTP surface exposes. Health is
// optional; nil checkers report as absent.
type Deps struct {
	Cfg      *config.Config
	Tenants  *tenant.Service
	Codes    *otp.Service
	Registry *channel.Registry
	Webhooks *webhook.Router
	Health   *handlers.HealthHandler
}

type Router struct {
	mux  *chi.Mux
	deps Deps
	jwt  *auth.JWTMiddleware
}

func NewRouter(deps Deps) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		deps: deps,
		jwt:  auth.NewJWTMiddleware(deps.Cfg.Auth.JWTSecret, deps.Tenants),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(30 * time.Second))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	if rt.deps.Health != nil {
		r.Get("/healthz", rt.deps.Health.Healthz)
		r.Get("/readyz", rt.deps.Health.Readyz)
	}

	authH := handlers.NewAuthHandler(rt.deps.Tenants, rt.deps.Codes,
		rt.deps.Cfg.Auth.JWTSecret, rt.deps.Cfg.Auth.JWTTTL)
	metaH := handlers.NewMetaHandler(rt.deps.Webhooks)
	channelH := handlers.NewChannelHandler(rt.deps.Registry)
	adminH := handlers.NewAdminHandler(rt.deps.Tenants, rt.deps.Registry)

	// Public surface: onboarding plus the platform callback.
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authH.Register)
		r.Post("/verify-email", authH.VerifyEmail)
		r.Post("/verify-phone", authH.VerifyPhone)
		r.Post("/resend-code", authH.ResendCode)
		r.Post("/login", authH.Login)
	})
	r.Route("/webhooks/meta", func(r chi.Router) {
		r.Get("/", metaH.Verify)
		r.Post("/", metaH.Receive)
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		r.Route("/channels", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleTenantAdmin, models.RoleSuperadmin))
			r.Post("/", channelH.Connect)
			r.Get("/", channelH.List)
			r.Delete("/{id}", channelH.Disconnect)
			r.Post("/{id}/rotate", channelH.Rotate)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleSuperadmin))
			r.Get("/tenants", adminH.ListTenants)
			r.Get("/tenants/{id}", adminH.GetTenant)
			r.Post("/tenants/{id}/approve", adminH.Approve)
			r.Post("/tenants/{id}/suspend", adminH.Suspend)
			r.Post("/tenants/{id}/reactivate", adminH.Reactivate)
		})
	})

	return r
}
