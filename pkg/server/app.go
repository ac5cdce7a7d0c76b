package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	xhttp "FinRisk/pkg/http"
	applogger "FinRisk/pkg/logger"
)

// App encapsulates the serve-mode lifecycle. Infrastructure clients behind the
// handlers are released by the injector cleanup once Run returns.
type App struct {
	logger     *applogger.Logger
	httpServer *xhttp.Server
	signals    []os.Signal
}

// New creates a new App instance.
func New(logger *applogger.Logger, httpServer *xhttp.Server) *App {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &App{
		logger:     logger,
		httpServer: httpServer,
		signals:    []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// Server returns the HTTP server.
func (a *App) Server() *xhttp.Server { return a.httpServer }

// Run starts the HTTP server and blocks until ctx is cancelled, a shutdown signal
// arrives or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, a.signals...)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
		a.logger.Error("http server failed", applogger.Error(runErr))
	}

	return errors.Join(runErr, a.shutdown())
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.logger.Info("shutting down...")

	// the run context is already cancelled here
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		return err
	}

	a.logger.Info("shutdown complete")
	return nil
}
