package engine

import "errors"

// Common errors returned by engine implementations
var (
	// ErrGenerationFailed is returned when inference fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate image")

	// ErrInvalidResponse is returned when the backend response is empty or malformed
	ErrInvalidResponse = errors.New("invalid response from inference backend")

	// ErrContentBlocked is returned when the backend filters the output
	ErrContentBlocked = errors.New("content blocked by inference backend safety filters")

	// ErrUnsupportedPipeline is returned when a target names a pipeline the backend lacks
	ErrUnsupportedPipeline = errors.New("unsupported pipeline")

	// ErrBusy is returned when a non-reentrant backend is acquired twice
	ErrBusy = errors.New("inference backend is busy")

	// ErrInvalidConfig is returned when the engine configuration is invalid
	ErrInvalidConfig = errors.New("invalid engine configuration")
)
