// Package web provides the HTTP server and handlers for converting uploads.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/coinconvert/internal/config"
	"github.com/JonMunkholm/coinconvert/internal/core"
	"github.com/JonMunkholm/coinconvert/internal/web/middleware"
)

// HistoryReader lists recorded conversions. *history.Store satisfies it.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]core.Record, error)
}

// Server is the HTTP server for the converter.
type Server struct {
	cfg     *config.Config
	service *core.Service
	history HistoryReader
	metrics http.Handler
	router  *chi.Mux
	limiter *rateLimiter

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// NewServer creates a Server. hist may be nil when no database is
// configured, and metrics nil to leave /metrics unrouted.
func NewServer(cfg *config.Config, service *core.Service, hist HistoryReader, metrics http.Handler) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		history: hist,
		metrics: metrics,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}

	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(s.limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Post("/convert", s.handleConvertPage)
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/schemas", s.handleListSchemas)
		r.Post("/convert", s.handleConvert)
		r.Get("/history", s.handleHistory)
		r.Get("/status", s.handleStatus)
	})
}

// Start begins listening for HTTP requests. It returns
// http.ErrServerClosed after Shutdown, including a Shutdown that came first.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	slog.Info("starting server", "addr", srv.Addr)
	return srv.ListenAndServe()
}

// Shutdown stops accepting requests and waits for running conversions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.stop()
	}
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.service.WaitForConversions(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// Pages carry one inline stylesheet and no scripts.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; form-action 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
