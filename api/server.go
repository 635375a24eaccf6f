package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/moto-nrw/fingerprint-edge/internal/config"
)

// Server provides an HTTP server for the edge API, plus the background
// sync worker the teacher's scheduler/sessionCleanup fields play the same
// role for.
type Server struct {
	*http.Server
	api    *API
	logger *slog.Logger
}

// NewServer creates and configures a new edge API server.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing edge API server")

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var addr string
	if strings.Contains(cfg.Port, ":") {
		addr = cfg.Port
	} else {
		addr = ":" + cfg.Port
	}

	srv := &Server{
		Server: &http.Server{
			Addr:    addr,
			Handler: a.Router,
			// WriteTimeout must stay unbounded: /fingerprint/ws holds a
			// long-lived connection open for the life of the session.
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  0,
		},
		api:    a,
		logger: logger,
	}

	return srv, nil
}

// Start runs the sync worker and HTTP server with graceful shutdown.
func (srv *Server) Start(ctx context.Context) {
	workerCtx, stopWorker := context.WithCancel(ctx)
	go srv.api.SyncWorker.Run(workerCtx)

	go func() {
		srv.logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srv.logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	sig := <-quit
	srv.logger.Info("server shutting down", "signal", sig.String())

	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.logger.Error("server forced to shutdown", "error", err)
	}
	if err := srv.api.Close(shutdownCtx); err != nil {
		srv.logger.Error("local store close failed", "error", err)
	}

	srv.logger.Info("server gracefully stopped")
}
