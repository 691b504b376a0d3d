package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rzpatryk/BuggyVege/internal/logger"
)

type Server struct {
	srv *http.Server
	log *slog.Logger
}

type Config struct {
	logger     *slog.Logger
	serverAddr string
}

type Option func(c *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

func WithServerAddr(addr string) Option {
	return func(c *Config) {
		c.serverAddr = addr
	}
}

func NewServer(handler http.Handler, opts ...Option) *Server {
	cfg := &Config{
		logger:     logger.Nop(),
		serverAddr: "0.0.0.0:8080",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	srv := &http.Server{
		Addr:              cfg.serverAddr,
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return &Server{
		srv: srv,
		log: cfg.logger.With(slog.String("module", "server")),
	}
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info(fmt.Sprintf("Starting server on %s", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Gracefully shutting down server...")

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}

	return nil
}
