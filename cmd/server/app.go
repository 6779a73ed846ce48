package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/phrazzld/ausonia-api/internal/api"
	"github.com/phrazzld/ausonia-api/internal/catalog"
	"github.com/phrazzld/ausonia-api/internal/config"
	"github.com/phrazzld/ausonia-api/internal/engine"
	"github.com/phrazzld/ausonia-api/internal/job"
	"github.com/phrazzld/ausonia-api/internal/platform/gemini"
	"github.com/phrazzld/ausonia-api/internal/platform/stub"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	catalog        *catalog.Catalog
	negativePrompt string
	engine         engine.Engine
	processor      *job.Processor
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.catalog, err = catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("model catalog loaded", "models", len(app.catalog.Models()))

	app.negativePrompt, err = loadNegativePrompt(cfg.Catalog.NegativePromptPath, logger)
	if err != nil {
		return nil, err
	}

	app.engine, err = newEngine(ctx, cfg.Engine, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inference engine: %w", err)
	}
	logger.Info("inference engine initialized", "backend", cfg.Engine.Backend)

	app.processor = job.NewProcessor(app.catalog, app.engine, job.Config{
		PollInterval:    cfg.Queue.PollInterval,
		MaxPromptTokens: cfg.Queue.MaxPromptTokens,
	}, logger)

	return app, nil
}

// newEngine creates the configured inference backend
func newEngine(ctx context.Context, cfg config.EngineConfig, logger *slog.Logger) (engine.Engine, error) {
	switch cfg.Backend {
	case "gemini":
		return gemini.NewEngine(ctx, logger, cfg)
	case "stub":
		return stub.New(logger, cfg.StubStepDuration), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", engine.ErrInvalidConfig, cfg.Backend)
	}
}

// loadNegativePrompt reads the preset negative prompt. A missing file is not
// an error; the preset is then empty.
func loadNegativePrompt(path string, logger *slog.Logger) (string, error) {
	if path == "" {
		return "", nil
	}
	prompt, err := catalog.LoadNegativePrompt(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("negative prompt file not found, serving an empty preset", "path", path)
		return "", nil
	}
	return prompt, err
}

// setupRouter creates the HTTP handler for the application
func (app *application) setupRouter() http.Handler {
	handler := api.NewInferenceHandler(app.processor, app.catalog, app.negativePrompt, app.logger)
	return api.NewRouter(handler, api.RouterConfig{
		RateLimit: app.config.Server.RateLimit,
		RateBurst: app.config.Server.RateBurst,
	}, app.logger)
}
