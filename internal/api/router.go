package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/ausonia-api/internal/api/middleware"
)

// RouterConfig holds the HTTP-level settings of the router
type RouterConfig struct {
	// RateLimit is the sustained number of submissions per second; zero disables it
	RateLimit float64
	RateBurst int
}

// NewRouter creates the application router with all routes and middleware
func NewRouter(h *InferenceHandler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", h.Root)
	r.Get("/queue_info", h.QueueInfo)
	r.Get("/get_negative_prompt", h.GetNegativePrompt)
	r.Get("/get_models", h.GetModels)
	r.Get("/get_result/{job_id}", h.GetResult)

	r.With(apiMiddleware.RateLimit(cfg.RateLimit, cfg.RateBurst)).Post("/inference", h.Submit)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
