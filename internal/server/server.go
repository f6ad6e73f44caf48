// Package server wires the Coursegate HTTP surface: routing, middleware,
// and lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/coursegate/coursegate/internal/authz"
	"github.com/coursegate/coursegate/internal/config"
	"github.com/coursegate/coursegate/internal/enroll"
	"github.com/coursegate/coursegate/internal/gateway"
	"github.com/coursegate/coursegate/internal/obs"
	"github.com/coursegate/coursegate/internal/openapi"
	"github.com/coursegate/coursegate/internal/server/handler"
	"github.com/coursegate/coursegate/internal/server/middleware"
	"github.com/coursegate/coursegate/internal/store"
	"github.com/coursegate/coursegate/internal/webhook"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Server is the top-level HTTP server. It owns the Chi router, the store,
// and the metrics registry.
type Server struct {
	cfg        config.Config
	router     chi.Router
	store      *store.Store
	metrics    *obs.Metrics
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes and middleware wired, ready to
// listen. The verifier checks bearer tokens on the authenticated routes.
func New(cfg config.Config, st *store.Store, verifier middleware.TokenVerifier, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		metrics: obs.New(),
		logger:  logger,
	}
	s.setupRouter(verifier)
	return s
}

func (s *Server) setupRouter(verifier middleware.TokenVerifier) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "svix-id", "svix-timestamp", "svix-signature"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.metrics.Instrument)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/openapi.json", s.handleOpenAPI())

	gate := authz.NewGate(s.store)
	gatewayHandler := handler.NewGatewayHandler(gate, gateway.New(s.store.DB(), s.logger), s.logger)
	enrollHandler := handler.NewEnrollHandler(enroll.NewService(s.store, s.logger), s.metrics, s.logger)
	webhookHandler := handler.NewWebhookHandler(webhook.NewReceiver(s.store, s.logger), s.cfg.Webhook.Secret, s.logger)
	userDataHandler := handler.NewUserDataHandler(s.store, gate, s.logger)

	r.Route("/api/v1", func(r chi.Router) {
		// The webhook authenticates via HMAC signature, not bearer token.
		r.With(middleware.RateLimit(s.cfg.Server.RequestsPerMinute)).
			Post("/webhooks/identity", webhookHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(verifier, s.metrics, s.logger))

			r.Post("/admin/crud", gatewayHandler.ServeHTTP)
			r.With(middleware.RateLimit(s.cfg.Server.RequestsPerMinute)).
				Post("/enroll", enrollHandler.ServeHTTP)
			r.Get("/me/{resource}", userDataHandler.ServeHTTP)
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the database is
// reachable, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded","checks":{"database":"unreachable"}}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","checks":{"database":"ok"}}`))
}

// handleOpenAPI serves the API document, generated once and cached.
func (s *Server) handleOpenAPI() http.HandlerFunc {
	doc := openapi.Generate("/", Version)
	body, err := doc.MarshalJSON()
	if err != nil {
		s.logger.Error("openapi generation failed", "error", err)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if body == nil {
			http.Error(w, "spec unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

// ListenAndServe starts the HTTP server and blocks until SIGINT or SIGTERM,
// then drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
