package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/phrazzld/ausonia-api/internal/job"
)

// serve starts the job processor and the HTTP server, and shuts both down
// when ctx is cancelled. The HTTP server stops accepting submissions first,
// then the processor finishes its in-flight job.
func (app *application) serve(ctx context.Context) error {
	if err := app.processor.Start(); err != nil {
		return fmt.Errorf("failed to start job processor: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.setupRouter(),
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("Starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("Server failed", "error", err)
			serveErr <- err
			cancelServer()
		}
	}()

	<-serverCtx.Done()
	app.logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("Server shutdown failed", "error", err)
		shutdownErr = fmt.Errorf("server shutdown failed: %w", err)
	}

	app.cleanup()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	default:
	}

	app.logger.Info("Server shutdown completed")
	return shutdownErr
}

// cleanup stops the job processor. Jobs still queued stay PENDING.
func (app *application) cleanup() {
	stats := app.processor.Stats()
	app.logger.Info("stopping job processor",
		"queued", stats.Queued,
		"processing", stats.Counts[job.StatusProcessing])
	app.processor.Stop()
}
