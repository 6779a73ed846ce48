package api

import (
	"fmt"

	"github.com/phrazzld/ausonia-api/internal/job"
)

// InferenceRequest is the body of POST /inference
type InferenceRequest struct {
	Model          string  `json:"model" validate:"required"`
	Prompt         string  `json:"prompt" validate:"required"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width" validate:"required,min=64,max=1280"`
	Height         int     `json:"height" validate:"required,min=64,max=1280"`
	Steps          int     `json:"steps" validate:"required,min=1,max=50"`
	CfgScale       float64 `json:"cfg_scale" validate:"gte=0,lte=30"`
}

// toInput converts the request to a job input
func (r InferenceRequest) toInput() job.Input {
	return job.Input{
		Model:          r.Model,
		Prompt:         r.Prompt,
		NegativePrompt: r.NegativePrompt,
		Width:          r.Width,
		Height:         r.Height,
		Steps:          r.Steps,
		GuidanceScale:  r.CfgScale,
	}
}

// InferenceResponse is returned when a job is accepted
type InferenceResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
}

// ResultResponse reports a job's status. Image and ElapsedTime are set for
// COMPLETED jobs, Error for FAILED jobs.
type ResultResponse struct {
	Status      string `json:"status"`
	Image       string `json:"image,omitempty"`
	ElapsedTime string `json:"elapsed_time,omitempty"`
	Error       string `json:"error,omitempty"`
}

func resultToResponse(rec job.Record) ResultResponse {
	resp := ResultResponse{Status: string(rec.Status)}
	switch rec.Status {
	case job.StatusCompleted:
		resp.Image = rec.Payload
		resp.ElapsedTime = fmt.Sprintf("%.2fs", rec.Elapsed.Seconds())
	case job.StatusFailed:
		resp.Error = rec.Reason
	}
	return resp
}

// ModelResponse is one entry of GET /get_models
type ModelResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsNSFW bool   `json:"is_nsfw"`
}

// ModelsResponse is the body of GET /get_models
type ModelsResponse struct {
	Models []ModelResponse `json:"models"`
}

// QueueInfoResponse is the body of GET /queue_info
type QueueInfoResponse struct {
	Queued     int `json:"queued"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

func statsToResponse(s job.Stats) QueueInfoResponse {
	return QueueInfoResponse{
		Queued:     s.Queued,
		Pending:    s.Counts[job.StatusPending],
		Processing: s.Counts[job.StatusProcessing],
		Completed:  s.Counts[job.StatusCompleted],
		Failed:     s.Counts[job.StatusFailed],
	}
}
