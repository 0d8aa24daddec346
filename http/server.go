// Package http serves track predictions over HTTP.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"trackrec/config"
	"trackrec/ml"
)

// Server wraps the http.Server of the predictor service.
type Server struct {
	server *http.Server
	config ServerConfig
	log    *zap.Logger
}

// ServerConfig is the subset of config.HTTPConfig the server needs.
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
	// Debug logs every received answer vector and predicted class.
	Debug bool
}

// DefaultServerConfig listens on port 5000 and allows any origin.
func DefaultServerConfig() ServerConfig {
	return ServerConfigFrom(config.Default().HTTP)
}

// ServerConfigFrom copies the loaded HTTP settings.
func ServerConfigFrom(cfg config.HTTPConfig) ServerConfig {
	return ServerConfig{
		Port:           cfg.Port,
		Timeout:        cfg.Timeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		AllowedOrigins: cfg.AllowedOrigins,
		Debug:          cfg.Debug,
	}
}

// NewServer builds the router around predictor, which must not change while
// the server runs.
func NewServer(cfg ServerConfig, predictor ml.TrackPredictor, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewRouter(cfg, predictor, log),
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config: cfg,
		log:    log,
	}
}

// NewRouter returns the service routes with the middleware stack applied.
// Recovery runs inside the request logger so a panic still produces a request
// log line and a latency observation with status 500.
func NewRouter(cfg ServerConfig, predictor ml.TrackPredictor, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		LoggerMiddleware(log),
		RecoveryMiddleware(log),
		CORSMiddleware(cfg.AllowedOrigins),
		RequestSizeMiddleware(cfg.MaxBodyBytes),
	)
	RegisterHandlers(r, newPredictHandler(predictor, log, cfg.Debug))
	return r
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", zap.String("addr", s.server.Addr), zap.Bool("debug", s.config.Debug))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests for up to 5 seconds.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.log.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	return s.server.Addr
}
