package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/vpanel/internal/api/handler"
	mw "github.com/edvin/vpanel/internal/api/middleware"
	"github.com/edvin/vpanel/internal/config"
	"github.com/edvin/vpanel/internal/core"
	"github.com/edvin/vpanel/internal/provision"
)

// Pool is the database handle the server runs on: the service queries plus
// a ping for readiness.
type Pool interface {
	core.DB
	Ping(ctx context.Context) error
}

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	services *core.Services
	pool     Pool
	cfg      *config.Config
	health   healthcheck.Handler
}

func NewServer(logger zerolog.Logger, pool Pool, runner provision.Runner, cfg *config.Config) *Server {
	services := core.NewServices(pool, runner, core.Options{
		JWTSecret:  cfg.JWTSecret,
		JWTIssuer:  cfg.JWTIssuer,
		SessionTTL: cfg.SessionTTL,
	})

	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		services: services,
		pool:     pool,
		cfg:      cfg,
		health:   NewHealth(pool),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// NewHealth builds the liveness and readiness checks for the API process.
func NewHealth(pool Pool) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddReadinessCheck("database", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	})
	return h
}

// Health exposes the server's health checks so a side listener can serve them.
func (s *Server) Health() healthcheck.Handler { return s.health }

// Services exposes the service layer for in-process callers such as seeding.
func (s *Server) Services() *core.Services { return s.services }

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(chimw.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics
	s.router.Handle("/metrics", promhttp.Handler())

	// Health checks
	s.router.Get("/healthz", s.health.LiveEndpoint)
	s.router.Get("/readyz", s.health.ReadyEndpoint)

	// Sign-in (no session required)
	auth := handler.NewAuth(s.services.Account, s.services.Session)
	s.router.Route("/auth", func(r chi.Router) {
		r.Use(mw.RateLimit(mw.RateLimitConfig{
			RequestsPerWindow: s.cfg.LoginRatePerMin,
			Window:            time.Minute,
			Burst:             s.cfg.LoginRatePerMin,
		}))
		r.Post("/login", auth.Login)
		r.Post("/otp", auth.OTP)
		r.Post("/remember", auth.Remember)
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.services.Session, s.pool))

		session := handler.NewSession(s.services.Account, s.services.Session)
		r.Get("/me", session.Me)
		r.Post("/session/switch-back", session.SwitchBack)

		account := handler.NewAccount(s.services.Account)
		r.Get("/accounts/{id}", account.Get)
		r.Put("/accounts/{id}", account.Update)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin)

			r.Post("/session/switch/{id}", session.Switch)

			// Accounts
			r.Get("/accounts", account.List)
			r.Post("/accounts", account.Create)
			r.Get("/accounts/assignable", account.Assignable)
			r.Get("/accounts/roles", account.Roles)
			r.Post("/accounts/bulk-delete", account.BulkDelete)
			r.Delete("/accounts/{id}", account.Delete)
			r.Post("/accounts/{id}/otp", account.IssueOTP)

			// Virtual hosts
			vhost := handler.NewVhost(s.services.Vhost, s.services.Mailbox, s.services.Alias)
			r.Get("/vhosts", vhost.List)
			r.Post("/vhosts", vhost.Create)
			r.Post("/vhosts/bulk-delete", vhost.BulkDelete)
			r.Get("/vhosts/{id}", vhost.Get)
			r.Put("/vhosts/{id}", vhost.Update)
			r.Delete("/vhosts/{id}", vhost.Delete)
			r.Post("/vhosts/{id}/execute", vhost.Execute)
			r.Get("/vhosts/{id}/mailboxes", vhost.Mailboxes)
			r.Get("/vhosts/{id}/aliases", vhost.Aliases)
			r.Get("/vhosts/{id}/active-mailboxes", vhost.ActiveMailboxes)

			// Mailboxes
			mailbox := handler.NewMailbox(s.services.Mailbox)
			r.Get("/mailboxes", mailbox.List)
			r.Post("/mailboxes", mailbox.Create)
			r.Post("/mailboxes/bulk-delete", mailbox.BulkDelete)
			r.Get("/mailboxes/{id}", mailbox.Get)
			r.Put("/mailboxes/{id}", mailbox.Update)
			r.Delete("/mailboxes/{id}", mailbox.Delete)
			r.Post("/mailboxes/{id}/execute", mailbox.Execute)
			r.Get("/mailboxes/{id}/stats", mailbox.Stats)

			// Aliases
			alias := handler.NewAlias(s.services.Alias)
			r.Get("/aliases", alias.List)
			r.Post("/aliases", alias.Create)
			r.Post("/aliases/bulk-delete", alias.BulkDelete)
			r.Get("/aliases/{id}", alias.Get)
			r.Put("/aliases/{id}", alias.Update)
			r.Delete("/aliases/{id}", alias.Delete)
		})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer wraps the router in a listener. There is no write timeout:
// mutations run their provisioning commands inline, and a bulk delete takes
// as long as its per-row command timeouts add up to.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
