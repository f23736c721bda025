// Package adminapi exposes the engine's control surface over HTTP using
// go-chi/chi, in place of the teacher's mTLS gRPC admin service: no
// generated client stubs are available for this domain, so the same
// read/write admin surface (subscribe, unsubscribe, test a channel,
// inspect an event, health/readiness) is reimplemented over plain JSON
// handlers, keeping the teacher's HealthServer response shapes
// (pkg/api/health.go's HealthResponse/ReadyResponse) and its
// ListenAndServe timeout configuration.
package adminapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cyprienbrisset/ffemonitor/internal/engine"
	"github.com/cyprienbrisset/ffemonitor/internal/log"
	"github.com/cyprienbrisset/ffemonitor/internal/metrics"
)

// Server is the admin/internal HTTP API. It owns no state of its own;
// every request is served by calling through to an Engine.
type Server struct {
	engine *engine.Engine
	router chi.Router
	logger zerolog.Logger
}

// New builds a Server with routes mounted, ready to be wrapped in an
// http.Server by the caller.
func New(eng *engine.Engine) *Server {
	s := &Server{
		engine: eng,
		logger: log.WithComponent("adminapi"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.metricsRecorder)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/subscriptions", s.handleSubscribe)
		r.Delete("/subscriptions", s.handleUnsubscribe)
		r.Get("/events/{numero}", s.handleGetEvent)
		r.Get("/queue/depth", s.handleQueueDepth)
		r.Get("/activity", s.handleRecentActivity)
		r.Post("/test-push", s.handleTestPush)
		r.Post("/test-email", s.handleTestEmail)
	})

	s.router = r
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the admin API on addr with the same
// conservative timeouts the teacher's HealthServer uses.
func (s *Server) ListenAndServe(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("admin API listening")
	return server.ListenAndServe()
}
