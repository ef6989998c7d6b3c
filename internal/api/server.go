package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/virtual-gateway/internal/auth"
	"github.com/nerrad567/virtual-gateway/internal/gateway"
	"github.com/nerrad567/virtual-gateway/internal/history"
	"github.com/nerrad567/virtual-gateway/internal/infrastructure/config"
)

// shutdownTimeout bounds graceful shutdown on Close.
const shutdownTimeout = 10 * time.Second

// Logger defines the logging interface used by the server.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps carries the collaborators the server needs.
type Deps struct {
	Config    config.APIConfig
	WebSocket config.WebSocketConfig

	Gateway   *gateway.Controller
	Auth      *auth.Service
	Analytics *history.Service
	Hub       *Hub

	Logger  Logger
	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg    config.APIConfig
	cors   config.CORSConfig
	wsCfg  config.WebSocketConfig
	logger Logger

	gateway   *gateway.Controller
	auth      *auth.Service
	analytics *history.Service
	hub       *Hub
	tickets   *ticketStore
	version   string

	httpServer *http.Server
	cancel     context.CancelFunc
}

// New creates the API server. Gateway, Auth, Analytics, and Hub are
// required; a nil Logger falls back to a no-op.
func New(deps Deps) (*Server, error) {
	if deps.Gateway == nil {
		return nil, errors.New("api: gateway controller is required")
	}
	if deps.Auth == nil {
		return nil, errors.New("api: auth service is required")
	}
	if deps.Analytics == nil {
		return nil, errors.New("api: analytics service is required")
	}
	if deps.Hub == nil {
		return nil, errors.New("api: websocket hub is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Server{
		cfg:       deps.Config,
		cors:      deps.Config.CORS,
		wsCfg:     deps.WebSocket,
		logger:    logger,
		gateway:   deps.Gateway,
		auth:      deps.Auth,
		analytics: deps.Analytics,
		hub:       deps.Hub,
		tickets:   newTicketStore(),
		version:   deps.Version,
	}, nil
}

// Start begins serving in the background. It returns once the listener
// goroutine is launched; fatal serve errors are logged.
func (s *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.cfg.GetReadTimeout(),
		WriteTimeout: s.cfg.GetWriteTimeout(),
		IdleTimeout:  s.cfg.GetIdleTimeout(),
	}

	go s.tickets.cleanLoop(runCtx)

	go func() {
		s.logger.Info("api server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server failed", "error", err)
		}
	}()

	return nil
}

// Close shuts the server down gracefully, then closes all WebSocket
// clients.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down api server: %w", err)
		}
	}

	s.hub.CloseAll()
	s.logger.Info("api server stopped")
	return nil
}
