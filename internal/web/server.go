// Package web exposes the lead service as a JSON HTTP API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lakshya1112/Buyer-lead-app/internal/config"
	"github.com/lakshya1112/Buyer-lead-app/internal/core"
	"github.com/lakshya1112/Buyer-lead-app/internal/web/middleware"
)

// Server is the HTTP server for the lead API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	limiter *middleware.RateLimiter
	metrics http.Handler
}

// Option configures optional Server collaborators.
type Option func(*Server)

// WithRateLimiter enables the per-IP and per-actor limits.
func WithRateLimiter(rl *middleware.RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewServer creates a Server routing to service.
func NewServer(service *core.Service, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.LimitByIP(s.cfg.Rate.RequestsPerMinute, time.Minute))
		}
		r.Use(middleware.JWTAuth(s.cfg.Auth.Secret, s.cfg.Auth.Issuer))
		if s.limiter != nil {
			r.Use(s.limiter.LimitMutations(s.cfg.Rate.MutationLimit, s.cfg.Rate.MutationWindow))
		}

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", s.handleListLeads)
			r.Post("/", s.handleCreateLead)
			r.Get("/{id}", s.handleGetLead)
			r.Put("/{id}", s.handleUpdateLead)
			r.Get("/{id}/history", s.handleLeadHistory)
		})

		r.Route("/import", func(r chi.Router) {
			r.Post("/preview", s.handleImportPreview)
			r.Post("/commit", s.handleImportCommit)
			r.Get("/template", s.handleImportTemplate)
		})

		r.Get("/export", s.handleExport)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

type healthResponse struct {
	Status  string                   `json:"status"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Imports: s.service.ImportLimiter().Status(),
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v with status. Encoding errors are only logged since
// the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
