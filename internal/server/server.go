// Package server exposes insight runs over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-insights/internal/config"
	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/internal/pipeline"
	"github.com/sells-group/market-insights/internal/store"
)

// Runner executes a run and records its lifecycle. *pipeline.Pipeline
// satisfies it.
type Runner interface {
	RunTracked(ctx context.Context, tracker pipeline.Tracker, runID string, req model.RunRequest, progress pipeline.ProgressFunc) (*model.TopicInsights, error)
}

// Server serves the run API.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	store      store.Store
	runner     Runner
	cfg        config.ServerConfig

	// runs outlive their request; baseCtx ends them on shutdown.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a Server. Background runs stop when ctx is cancelled or the
// server shuts down.
func New(ctx context.Context, st store.Store, runner Runner, cfg config.ServerConfig) *Server {
	baseCtx, cancel := context.WithCancel(ctx)
	s := &Server{
		router:  chi.NewRouter(),
		store:   st,
		runner:  runner,
		cfg:     cfg,
		baseCtx: baseCtx,
		cancel:  cancel,
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if len(s.cfg.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Post("/", s.handleCreateRun)
		r.Get("/{id}", s.handleGetRun)
		r.Get("/{id}/insights", s.handleGetInsights)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	zap.L().Info("server: listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// Shutdown stops accepting requests, cancels background runs and waits for
// them to record their outcome.
func (s *Server) Shutdown(ctx context.Context) error {
	zap.L().Info("server: shutting down")
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.httpServer.Shutdown(ctx)
	s.cancel()
	s.Wait()
	return eris.Wrap(err, "server: shutdown")
}

// track registers a background run. It reports false once Shutdown has
// begun, so Wait never races a late Add.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

// Wait blocks until every background run has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// requestLogger logs each request with zap once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
