package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	ginhandler "realtime-leaderboard/internal/adapter/gin/handler"
	"realtime-leaderboard/internal/adapter/gin/middleware"
	"realtime-leaderboard/internal/adapter/gin/router"
	"realtime-leaderboard/internal/config"
)

// Server struct holds the HTTP server and its dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	HTTP   *http.Server
}

// New creates a new server instance
func New(
	cfg *config.Config,
	l *zap.Logger,
	lbHandler *ginhandler.LeaderboardHandler,
	rateLimiter *middleware.RateLimiter,
) *Server {
	r := router.SetupRouter(lbHandler, rateLimiter, cfg.App.AllowedOrigins, l)

	// WriteTimeout stays zero: the stream endpoint holds its response
	// open for the lifetime of the viewer connection.
	httpServer := &http.Server{
		Addr:              ":" + cfg.App.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		Config: cfg,
		Logger: l,
		HTTP:   httpServer,
	}
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.Logger.Info("HTTP server running", zap.String("address", s.HTTP.Addr))
	if err := s.HTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
