package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/config"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server exposes the mail workflow operations over HTTP
type Server struct {
	cfg        config.ServerConfig
	engine     *gin.Engine
	httpServer *http.Server
	logger     *zap.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new HTTP server around the workflow services
func NewServer(
	cfg *config.Config,
	fetch *core.FetchService,
	submit *core.SubmitService,
	pipeline *core.PipelineService,
	logger *zap.Logger,
) (*Server, error) {
	sc, err := cfg.GetServer()
	if err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	engine := newRouter(newHandlers(fetch, submit, pipeline, logger), logger)
	return &Server{
		cfg:    sc,
		engine: engine,
		httpServer: &http.Server{
			Addr:              sc.ListenAddress,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the bound address once the server has started
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.cfg.ListenAddress
	}
	return s.listener.Addr().String()
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", zap.String("address", ln.Addr().String()))
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop waits for in-flight requests up to the shutdown timeout
func (s *Server) Stop() error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}
