package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"blade-arena/internal/config"
	"blade-arena/internal/render"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Server is the HTTP API server with websocket room subscriptions.
type Server struct {
	cfg         config.ServerConfig
	logger      *zap.Logger
	router      *chi.Mux
	hub         *RoomHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer wires the router and the hub. Background workers do not start
// until Start, so the server can be built in tests and served through
// Router().
func NewServer(cfg config.ServerConfig, arenaSize float64, rooms RoomManager, hub *RoomHub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		hub:    hub,
		rateLimiter: NewIPRateLimiter(RateLimitConfig{
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		}),
	}

	s.router = NewRouter(RouterConfig{
		Rooms:       rooms,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.CORSOrigins,
		Preview:     render.NewPreview(cfg.PreviewSize, arenaSize),
	})
	s.router.Get("/ws/rooms/{roomID}", hub.HandleWebSocket)

	return s
}

// Start launches the hub and rate limiter workers and serves HTTP until
// Stop. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	go s.hub.Run()
	s.rateLimiter.StartCleanup()

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("🌐 API server starting", zap.String("addr", addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop shuts the listener down and disconnects websocket clients.
func (s *Server) Stop(ctx context.Context) error {
	s.rateLimiter.Stop()
	s.hub.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
