// Package web provides the HTTP server and handlers for the dedup UI.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/JonMunkholm/sansdoublons/internal/config"
	"github.com/JonMunkholm/sansdoublons/internal/core"
	"github.com/JonMunkholm/sansdoublons/internal/web/middleware"
	"github.com/JonMunkholm/sansdoublons/internal/web/templates"
)

// errRateLimited is mapped to RATE001 by its text.
var errRateLimited = errors.New("rate limit exceeded")

// limiterCleanupInterval is how often idle rate limit entries are pruned.
const limiterCleanupInterval = time.Minute

// Server is the HTTP server for the dedup application.
type Server struct {
	service *core.Service
	cfg     *config.Config
	options templates.Options
	router  *chi.Mux
	server  *http.Server

	// stop ends the rate limiter cleanup goroutines.
	stop context.CancelFunc
}

// NewServer creates a Server wired to service with the given configuration.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		service: service,
		cfg:     cfg,
		options: newOptions(cfg.Upload.MaxFileSize),
		router:  chi.NewRouter(),
		stop:    cancel,
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))

	if origins := s.cfg.Security.AllowedOrigins; len(origins) > 0 {
		s.router.Use(cors.New(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", "HX-Request", "HX-Target", "HX-Current-URL"},
			ExposedHeaders: []string{"Content-Disposition", "Retry-After"},
			MaxAge:         600,
		}).Handler)
	}

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(ctx, s.cfg.Rate.RequestsPerMinute))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/", templ.Handler(templates.IndexPage(s.options)).ServeHTTP)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)

		r.Route("/sessions", func(r chi.Router) {
			upload := r.With()
			if s.cfg.Rate.Enabled && s.cfg.Rate.UploadLimit > 0 {
				upload = r.With(s.rateLimit(ctx, s.cfg.Rate.UploadLimit))
			}
			upload.Post("/", s.handleOpen)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Delete("/", s.handleClose)
				r.Post("/sheet", s.handleSelectSheet)
				r.Post("/reread", s.handleReread)
				r.Post("/dedup", s.handleDedup)
				r.Get("/download", s.handleDownload)
			})
		})
	})
}

// rateLimit builds a per-IP limiter of n requests per minute whose cleanup
// runs until ctx is cancelled.
func (s *Server) rateLimit(ctx context.Context, n int) func(http.Handler) http.Handler {
	rl := middleware.NewRateLimiter(n, time.Minute)
	go rl.RunCleanup(ctx, limiterCleanupInterval)
	return rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
	}))
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
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

// Shutdown gracefully stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
