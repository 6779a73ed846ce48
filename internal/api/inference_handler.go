package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/ausonia-api/internal/api/shared"
	"github.com/phrazzld/ausonia-api/internal/catalog"
	"github.com/phrazzld/ausonia-api/internal/job"
)

// JobProcessor is the part of job.Processor the API depends on
type JobProcessor interface {
	Submit(in job.Input) (uuid.UUID, error)
	Status(id uuid.UUID) (job.Record, bool)
	Stats() job.Stats
}

// ModelLister lists the models clients may request
type ModelLister interface {
	Models() []catalog.Model
}

// InferenceHandler handles job submission, result polling and the
// informational endpoints
type InferenceHandler struct {
	processor      JobProcessor
	models         ModelLister
	negativePrompt string
	validator      *validator.Validate
	logger         *slog.Logger
}

// NewInferenceHandler creates a new InferenceHandler
func NewInferenceHandler(
	processor JobProcessor,
	models ModelLister,
	negativePrompt string,
	logger *slog.Logger,
) *InferenceHandler {
	return &InferenceHandler{
		processor:      processor,
		models:         models,
		negativePrompt: negativePrompt,
		validator:      validator.New(),
		logger:         logger.With("component", "inference_handler"),
	}
}

// Root handles GET /
func (h *InferenceHandler) Root(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"text": "We're online!"})
}

// Submit handles POST /inference requests
func (h *InferenceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req InferenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, sanitizeValidationError(err))
		return
	}

	id, err := h.processor.Submit(req.toInput())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	// 202 Accepted since processing happens asynchronously
	shared.RespondWithJSON(w, r, http.StatusAccepted, InferenceResponse{
		Success: true,
		JobID:   id.String(),
	})
}

// GetResult handles GET /get_result/{job_id} requests
func (h *InferenceHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "job_id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, GetSafeErrorMessage(ErrJobNotFound))
		return
	}

	rec, ok := h.processor.Status(id)
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, GetSafeErrorMessage(ErrJobNotFound))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resultToResponse(rec))
}

// QueueInfo handles GET /queue_info
func (h *InferenceHandler) QueueInfo(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, statsToResponse(h.processor.Stats()))
}

// GetModels handles GET /get_models
func (h *InferenceHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	models := h.models.Models()
	resp := ModelsResponse{Models: make([]ModelResponse, 0, len(models))}
	for _, m := range models {
		resp.Models = append(resp.Models, ModelResponse{
			ID:     m.ID,
			Name:   m.Name,
			IsNSFW: m.IsNSFW,
		})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetNegativePrompt handles GET /get_negative_prompt
func (h *InferenceHandler) GetNegativePrompt(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"negative_prompt": h.negativePrompt})
}

// sanitizeValidationError reports the first failing field without
// exposing validator internals
func sanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	if fe.Param() != "" {
		return fmt.Sprintf("Invalid %s: failed %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("Invalid %s: failed %s", field, fe.Tag())
}
