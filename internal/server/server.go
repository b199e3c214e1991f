// Package server provides the HTTP server of swissd.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/config"
	apperrors "github.com/devrev/swissmatch/internal/errors"
	"github.com/devrev/swissmatch/internal/handler"
	"github.com/devrev/swissmatch/internal/health"
	"github.com/devrev/swissmatch/internal/metrics"
	"github.com/devrev/swissmatch/internal/middleware"
)

// Server represents the HTTP server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	handlers     *handler.Handlers
	healthCheck  *health.HealthChecker
	metrics      *metrics.Metrics
	errorHandler *apperrors.Handler
	logger       *zap.Logger
	cfg          *config.Config
}

// NewServer creates a new HTTP server. m may be nil when metrics are
// disabled.
func NewServer(
	cfg *config.Config,
	tournaments handler.TournamentAPI,
	healthCheck *health.HealthChecker,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Server {
	router := mux.NewRouter()
	errorHandler := apperrors.NewHandler(logger)

	httpServer := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return &Server{
		router:       router,
		httpServer:   httpServer,
		handlers:     handler.NewHandlers(tournaments, errorHandler, logger, cfg.Server.RequestTimeout),
		healthCheck:  healthCheck,
		metrics:      m,
		errorHandler: errorHandler,
		logger:       logger,
		cfg:          cfg,
	}
}

// SetupRoutes configures all HTTP routes.
func (s *Server) SetupRoutes() {
	middlewareChain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
		middleware.CORS(s.cfg.Server.CORSOrigins),
	}

	if s.cfg.RateLimiter.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			float64(s.cfg.RateLimiter.RequestsPerSecond),
			s.cfg.RateLimiter.Burst,
			s.logger,
		)
		middlewareChain = append(middlewareChain, rateLimiter.Limit)
	}

	s.router.Use(middleware.Chain(middlewareChain...))
	if s.metrics != nil {
		s.router.Use(metrics.MetricsMiddleware(s.metrics))
	}

	if s.healthCheck != nil {
		s.router.HandleFunc("/health", s.healthCheck.LivenessHandler).Methods(http.MethodGet)
		s.router.HandleFunc("/ready", s.healthCheck.ReadinessHandler).Methods(http.MethodGet)
	}

	// Registered on the root router with full paths: a subrouter reports a
	// method mismatch as 404.
	s.router.HandleFunc("/v1/tournaments", s.handlers.CreateTournament).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/tournaments", s.handlers.ListTournaments).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/tournaments/{id}", s.handlers.GetTournament).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/tournaments/{id}", s.handlers.DeleteTournament).Methods(http.MethodDelete)

	// Match protocol
	s.router.HandleFunc("/v1/tournaments/{id}/checkout", s.handlers.Checkout).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/tournaments/{id}/commit", s.handlers.Commit).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/tournaments/{id}/checked-out", s.handlers.CheckedOutMatches).Methods(http.MethodGet)

	// Standings
	s.router.HandleFunc("/v1/tournaments/{id}/table", s.handlers.Table).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/tournaments/{id}/winner", s.handlers.Winner).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/tournaments/{id}/repeated-matches", s.handlers.RepeatedMatches).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusNotFound, apperrors.HTTPErrorNotFound, "endpoint not found", r.Header.Get(middleware.RequestIDHeader))
	})

	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusMethodNotAllowed, apperrors.HTTPErrorInvalidRequest, "method not allowed", r.Header.Get(middleware.RequestIDHeader))
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the http.Handler for the server.
func (s *Server) GetHandler() http.Handler {
	return s.router
}
