package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/ausonia-api/internal/job"
)

// ErrJobNotFound is reported for unknown or malformed job ids
var ErrJobNotFound = errors.New("job not found")

// MapErrorToStatusCode maps internal errors to HTTP status codes
// without leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, job.ErrProcessorStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err
func GetSafeErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrJobNotFound):
		return "Job not found"
	case errors.Is(err, job.ErrProcessorStopped):
		return "The server is shutting down, try again later"
	default:
		return "An unexpected error occurred"
	}
}
