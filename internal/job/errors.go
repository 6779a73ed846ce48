package job

import (
	"errors"
	"fmt"
)

// Common errors returned by the Processor
var (
	ErrAlreadyStarted   = errors.New("job processor already started")
	ErrProcessorStopped = errors.New("job processor is stopped")
	ErrEmptyArtifact    = errors.New("inference engine returned an empty artifact")
)

// Failure reasons recorded for FAILED jobs. Execution failures always use the
// generic reason; the cause is only logged.
const (
	ReasonExecutionFailed       = "An error occurred while processing the job"
	ReasonPromptTooLong         = "Prompt is too long"
	ReasonNegativePromptTooLong = "Negative Prompt is too long"
	ReasonInvalidDimensions     = "Width, height and steps must be positive"
)

func modelNotFoundReason(model string) string {
	return fmt.Sprintf("Model '%s' not found", model)
}

func pipelineNotFoundReason(pipeline string) string {
	return fmt.Sprintf("Pipeline '%s' not found", pipeline)
}
