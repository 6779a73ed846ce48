package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/ausonia-api/internal/catalog"
	"github.com/phrazzld/ausonia-api/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessor implements JobProcessor for handler tests
type fakeProcessor struct {
	mu        sync.Mutex
	records   map[uuid.UUID]job.Record
	submitted []job.Input
	submitErr error
	stats     job.Stats
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{records: make(map[uuid.UUID]job.Record)}
}

func (f *fakeProcessor) Submit(in job.Input) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return uuid.Nil, f.submitErr
	}
	id := uuid.New()
	f.records[id] = job.Record{Status: job.StatusPending}
	f.submitted = append(f.submitted, in)
	return id, nil
}

func (f *fakeProcessor) Status(id uuid.UUID) (job.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	return rec, ok
}

func (f *fakeProcessor) Stats() job.Stats {
	return f.stats
}

type fakeModels []catalog.Model

func (f fakeModels) Models() []catalog.Model { return f }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(p JobProcessor, cfg RouterConfig) http.Handler {
	models := fakeModels{
		{ID: "dreamshaper-8", Name: "DreamShaper 8", Pipeline: "StableDiffusionPipeline"},
		{ID: "sdxl-base", Name: "SDXL", Pipeline: "StableDiffusionXLPipeline", IsNSFW: true},
	}
	h := NewInferenceHandler(p, models, "lowres, blurry", testLogger())
	return NewRouter(h, cfg, testLogger())
}

const validBody = `{
	"model": "dreamshaper-8",
	"prompt": "a lighthouse at dusk",
	"negative_prompt": "blurry",
	"width": 512,
	"height": 768,
	"steps": 25,
	"cfg_scale": 7.5
}`

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRoot(t *testing.T) {
	t.Parallel()

	rr := doRequest(t, newTestRouter(newFakeProcessor(), RouterConfig{}), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"text":"We're online!"}`, rr.Body.String())
}

func TestSubmit_Accepted(t *testing.T) {
	t.Parallel()

	p := newFakeProcessor()
	rr := doRequest(t, newTestRouter(p, RouterConfig{}), http.MethodPost, "/inference", validBody)

	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp InferenceResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	_, err := uuid.Parse(resp.JobID)
	assert.NoError(t, err)

	require.Len(t, p.submitted, 1)
	assert.Equal(t, job.Input{
		Model:          "dreamshaper-8",
		Prompt:         "a lighthouse at dusk",
		NegativePrompt: "blurry",
		Width:          512,
		Height:         768,
		Steps:          25,
		GuidanceScale:  7.5,
	}, p.submitted[0])
}

func TestSubmit_BadRequest(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{
			name:        "malformed json",
			body:        `{"model":`,
			wantMessage: "Invalid request format",
		},
		{
			name:        "unknown field",
			body:        strings.Replace(validBody, `"steps": 25`, `"steps": 25, "sampler": "euler"`, 1),
			wantMessage: "Invalid request format",
		},
		{
			name:        "missing prompt",
			body:        strings.Replace(validBody, `"prompt": "a lighthouse at dusk",`, "", 1),
			wantMessage: "Invalid prompt: failed required",
		},
		{
			name:        "width too large",
			body:        strings.Replace(validBody, `"width": 512`, `"width": 4096`, 1),
			wantMessage: "Invalid width: failed max=1280",
		},
		{
			name:        "guidance scale too large",
			body:        strings.Replace(validBody, `"cfg_scale": 7.5`, `"cfg_scale": 31`, 1),
			wantMessage: "Invalid cfgscale: failed lte=30",
		},
		{
			name:        "negative guidance scale",
			body:        strings.Replace(validBody, `"cfg_scale": 7.5`, `"cfg_scale": -1`, 1),
			wantMessage: "Invalid cfgscale: failed gte=0",
		},
		{
			name:        "too many steps",
			body:        strings.Replace(validBody, `"steps": 25`, `"steps": 500`, 1),
			wantMessage: "Invalid steps: failed max=50",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := newFakeProcessor()
			rr := doRequest(t, newTestRouter(p, RouterConfig{}), http.MethodPost, "/inference", tc.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			var resp struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantMessage, resp.Error)
			assert.Empty(t, p.submitted)
		})
	}
}

func TestSubmit_GuidanceScaleOptional(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		body string
	}{
		{
			name: "omitted",
			body: strings.Replace(validBody, `,
	"cfg_scale": 7.5`, "", 1),
		},
		{
			name: "zero",
			body: strings.Replace(validBody, `"cfg_scale": 7.5`, `"cfg_scale": 0`, 1),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := newFakeProcessor()
			rr := doRequest(t, newTestRouter(p, RouterConfig{}), http.MethodPost, "/inference", tc.body)

			require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
			require.Len(t, p.submitted, 1)
			assert.Zero(t, p.submitted[0].GuidanceScale)
		})
	}
}

func TestSubmit_ProcessorStopped(t *testing.T) {
	t.Parallel()

	p := newFakeProcessor()
	p.submitErr = job.ErrProcessorStopped
	rr := doRequest(t, newTestRouter(p, RouterConfig{}), http.MethodPost, "/inference", validBody)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "shutting down")
}

func TestGetResult(t *testing.T) {
	t.Parallel()

	p := newFakeProcessor()
	pendingID := uuid.New()
	completedID := uuid.New()
	failedID := uuid.New()
	p.records[pendingID] = job.Record{Status: job.StatusPending}
	p.records[completedID] = job.Record{
		Status:  job.StatusCompleted,
		Payload: "data:image/png;base64,AA==",
		Elapsed: 4321 * time.Millisecond,
	}
	p.records[failedID] = job.Record{Status: job.StatusFailed, Reason: "Model 'ghost-model' not found"}
	router := newTestRouter(p, RouterConfig{})

	testCases := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{
			name:     "pending",
			path:     "/get_result/" + pendingID.String(),
			wantCode: http.StatusOK,
			wantBody: `{"status":"PENDING"}`,
		},
		{
			name:     "completed",
			path:     "/get_result/" + completedID.String(),
			wantCode: http.StatusOK,
			wantBody: `{"status":"COMPLETED","image":"data:image/png;base64,AA==","elapsed_time":"4.32s"}`,
		},
		{
			name:     "failed",
			path:     "/get_result/" + failedID.String(),
			wantCode: http.StatusOK,
			wantBody: `{"status":"FAILED","error":"Model 'ghost-model' not found"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, router, http.MethodGet, tc.path, "")
			assert.Equal(t, tc.wantCode, rr.Code)
			assert.JSONEq(t, tc.wantBody, rr.Body.String())
		})
	}
}

func TestGetResult_NotFound(t *testing.T) {
	t.Parallel()

	router := newTestRouter(newFakeProcessor(), RouterConfig{})

	for _, path := range []string{"/get_result/" + uuid.New().String(), "/get_result/not-a-uuid"} {
		rr := doRequest(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, path)

		var resp struct {
			Error     string `json:"error"`
			RequestID string `json:"request_id"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "Job not found", resp.Error)
		assert.NotEmpty(t, resp.RequestID)
	}
}

func TestQueueInfo(t *testing.T) {
	t.Parallel()

	p := newFakeProcessor()
	p.stats = job.Stats{
		Queued: 2,
		Counts: map[job.Status]int{
			job.StatusPending:    2,
			job.StatusProcessing: 1,
			job.StatusCompleted:  5,
			job.StatusFailed:     1,
		},
	}

	rr := doRequest(t, newTestRouter(p, RouterConfig{}), http.MethodGet, "/queue_info", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queued":2,"pending":2,"processing":1,"completed":5,"failed":1}`, rr.Body.String())
}

func TestGetModels(t *testing.T) {
	t.Parallel()

	rr := doRequest(t, newTestRouter(newFakeProcessor(), RouterConfig{}), http.MethodGet, "/get_models", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"models":[
		{"id":"dreamshaper-8","name":"DreamShaper 8","is_nsfw":false},
		{"id":"sdxl-base","name":"SDXL","is_nsfw":true}
	]}`, rr.Body.String())
}

func TestGetNegativePrompt(t *testing.T) {
	t.Parallel()

	rr := doRequest(t, newTestRouter(newFakeProcessor(), RouterConfig{}), http.MethodGet, "/get_negative_prompt", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"negative_prompt":"lowres, blurry"}`, rr.Body.String())
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rr := doRequest(t, newTestRouter(newFakeProcessor(), RouterConfig{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestSubmit_RateLimited(t *testing.T) {
	t.Parallel()

	p := newFakeProcessor()
	router := newTestRouter(p, RouterConfig{RateLimit: 0.001, RateBurst: 2})

	assert.Equal(t, http.StatusAccepted, doRequest(t, router, http.MethodPost, "/inference", validBody).Code)
	assert.Equal(t, http.StatusAccepted, doRequest(t, router, http.MethodPost, "/inference", validBody).Code)

	rr := doRequest(t, router, http.MethodPost, "/inference", validBody)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Len(t, p.submitted, 2)

	// polling is never limited
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/queue_info", "").Code)
}

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, MapErrorToStatusCode(ErrJobNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, MapErrorToStatusCode(job.ErrProcessorStopped))
	assert.Equal(t, http.StatusInternalServerError, MapErrorToStatusCode(assert.AnError))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(assert.AnError))
}
