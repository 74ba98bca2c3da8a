// Package api provides the HTTP API server and handlers for the tagwright server.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tagwright/tagwright-server/internal/metrics"
	"github.com/tagwright/tagwright-server/internal/sse"
	"github.com/tagwright/tagwright-server/internal/store"
)

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins     []string
	BURCreatePerMinute int // 0 disables the limit
	LoginPerMinute     int // 0 disables the limit
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      store.Store
	services   *Services
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger
	sseManager *sse.Manager
	sseHandler *sse.Handler
	metrics    *metrics.Prometheus

	authRateLimiter      *RateLimiter
	burCreateRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	store store.Store,
	services *Services,
	sseManager *sse.Manager,
	prom *metrics.Prometheus,
	opts Options,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:      store,
		services:   services,
		router:     chi.NewRouter(),
		logger:     logger,
		sseManager: sseManager,
		metrics:    prom,
	}
	if opts.LoginPerMinute > 0 {
		s.authRateLimiter = NewRateLimiter(opts.LoginPerMinute, time.Minute, opts.LoginPerMinute)
	}
	if opts.BURCreatePerMinute > 0 {
		s.burCreateRateLimiter = NewRateLimiter(opts.BURCreatePerMinute, time.Minute, opts.BURCreatePerMinute)
	}

	s.setupMiddleware(opts.AllowedOrigins)
	s.api = humachi.New(s.router, humaConfig())
	RegisterErrorHandler()
	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.authRateLimiter != nil {
		s.authRateLimiter.Stop()
	}
	if s.burCreateRateLimiter != nil {
		s.burCreateRateLimiter.Stop()
	}
}

func humaConfig() huma.Config {
	config := huma.DefaultConfig("Tagwright API", "1.0.0")
	config.Info.Description = "Bulk update requests for a tag taxonomy"
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	config.Transformers = append(config.Transformers, EnvelopeTransformer)
	return config
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(allowedOrigins []string) {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(authMiddleware(s.services.Auth))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBulkUpdateRequestRoutes()
	s.registerTaxonomyRoutes()
	s.registerForumRoutes()
	s.registerNotificationRoutes()

	if s.sseManager != nil {
		s.sseHandler = sse.NewHandler(s.sseManager, s.resolveSSEClient, s.logger)
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}
}
