// Package server exposes the query engine over HTTP and WebSocket.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/salesiq/internal/audit"
	"github.com/ziadkadry99/salesiq/internal/logging"
	"github.com/ziadkadry99/salesiq/internal/query"
	"github.com/ziadkadry99/salesiq/internal/retrieval"
	"github.com/ziadkadry99/salesiq/internal/sales"
)

// Config holds server configuration.
type Config struct {
	Addr        string
	CORSOrigins []string
	// HistoryLimit is the default page size of the messages endpoint.
	HistoryLimit int
}

// Refresher forces a live fetch of the dataset.
type Refresher interface {
	Refresh(ctx context.Context) (*sales.Snapshot, error)
}

// Deps are the components the server routes to. Engine is required; the
// rest switch their endpoints off when nil.
type Deps struct {
	Engine *query.Engine
	Audit  *audit.Store
	Data   Refresher
	Index  *retrieval.Index
	Logger zerolog.Logger
}

// Server is the HTTP front end of the query engine.
type Server struct {
	cfg        Config
	deps       Deps
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all routes registered.
func New(cfg Config, deps Deps) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logging.Component(deps.Logger, "server"),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(middleware.Recoverer)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// WebSocket connections outlive any request timeout.
	r.Get("/ws/chat", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/api/ask", s.handleAsk)
		r.Get("/api/export.xlsx", s.handleExport)
		r.Post("/api/reindex", s.handleReindex)
		r.Get("/api/sessions/{id}", s.handleSession)
		r.Get("/api/sessions/{id}/messages", s.handleMessages)

		if s.deps.Audit != nil {
			audit.RegisterRoutes(r, s.deps.Audit)
		}
	})

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info().Str("addr", s.cfg.Addr).Msg("salesiq server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
