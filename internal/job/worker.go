package job

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/phrazzld/ausonia-api/internal/engine"
	"github.com/phrazzld/ausonia-api/internal/redact"
)

// Resolver maps a caller's model selector to an engine target
type Resolver interface {
	Resolve(selector string) (engine.Target, bool)
}

// Config holds configuration for the job processor
type Config struct {
	// PollInterval bounds how long the worker waits on an empty queue before
	// re-checking for shutdown
	PollInterval time.Duration

	// MaxPromptTokens is the largest prompt or negative prompt accepted,
	// measured in the engine's tokenizer
	MaxPromptTokens int
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		PollInterval:    time.Second,
		MaxPromptTokens: 75,
	}
}

// worker drains the queue one job at a time. It is the only writer of the
// status store after submission.
type worker struct {
	queue    *Queue
	store    *StatusStore
	resolver Resolver
	engine   engine.Engine
	config   Config
	logger   *slog.Logger
}

// run processes jobs until ctx is cancelled. Jobs still queued at that point
// are left PENDING.
func (w *worker) run(ctx context.Context) {
	w.logger.Info("worker started", "poll_interval", w.config.PollInterval)

	// Jobs already dequeued run to completion even after shutdown is signalled.
	jobCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopped", "abandoned_jobs", w.queue.Len())
			return
		}

		j, ok := w.queue.Dequeue(ctx, w.config.PollInterval)
		if !ok {
			continue
		}

		w.process(jobCtx, j)
	}
}

// process drives a single job from validation to a terminal status.
// No failure, including a panic in the engine, escapes this method.
func (w *worker) process(ctx context.Context, j Job) {
	logger := w.logger.With(
		"job_id", j.ID,
		"model", j.Input.Model,
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked",
				"panic", redact.String(fmt.Sprint(r)),
				"stack", string(debug.Stack()))
			w.store.Put(j.ID, failedRecord(ReasonExecutionFailed))
		}
	}()

	target, reason, err := w.validate(ctx, j.Input)
	if err != nil {
		logger.Error("job validation failed", "error", redact.Error(err))
		w.store.Put(j.ID, failedRecord(ReasonExecutionFailed))
		return
	}
	if reason != "" {
		logger.Info("job rejected", "reason", reason)
		w.store.Put(j.ID, failedRecord(reason))
		return
	}

	w.store.Put(j.ID, processingRecord())
	logger.Info("processing job", "pipeline", target.Pipeline)

	artifact, elapsed, err := w.execute(ctx, target, requestFromInput(j.Input))
	if err != nil {
		logger.Error("job execution failed",
			"error", redact.Error(err),
			"elapsed", elapsed)
		w.store.Put(j.ID, failedRecord(ReasonExecutionFailed))
		return
	}

	w.store.Put(j.ID, completedRecord(encodeDataURL(artifact), elapsed))
	logger.Info("job completed",
		"elapsed", elapsed,
		"artifact_bytes", len(artifact.Data))
}

// validate resolves the job's target and checks its input. A non-empty
// reason rejects the job; an error means validation itself could not run.
func (w *worker) validate(ctx context.Context, in Input) (engine.Target, string, error) {
	target, ok := w.resolver.Resolve(in.Model)
	if !ok {
		return engine.Target{}, modelNotFoundReason(in.Model), nil
	}

	if !w.engine.Supports(target.Pipeline) {
		return engine.Target{}, pipelineNotFoundReason(target.Pipeline), nil
	}

	if in.Width <= 0 || in.Height <= 0 || in.Steps <= 0 {
		return engine.Target{}, ReasonInvalidDimensions, nil
	}

	promptTokens, err := w.engine.CountTokens(ctx, target, in.Prompt)
	if err != nil {
		return engine.Target{}, "", fmt.Errorf("count prompt tokens: %w", err)
	}
	if promptTokens > w.config.MaxPromptTokens {
		return engine.Target{}, ReasonPromptTooLong, nil
	}

	if in.NegativePrompt != "" {
		negativeTokens, err := w.engine.CountTokens(ctx, target, in.NegativePrompt)
		if err != nil {
			return engine.Target{}, "", fmt.Errorf("count negative prompt tokens: %w", err)
		}
		if negativeTokens > w.config.MaxPromptTokens {
			return engine.Target{}, ReasonNegativePromptTooLong, nil
		}
	}

	return target, "", nil
}

// execute acquires the pipeline, runs inference and releases the pipeline on
// every path. Only the Generate call is timed.
func (w *worker) execute(
	ctx context.Context,
	target engine.Target,
	req engine.Request,
) (*engine.Artifact, time.Duration, error) {
	pipe, err := w.engine.Acquire(ctx, target)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire pipeline: %w", err)
	}
	defer pipe.Release()

	start := time.Now()
	artifact, err := pipe.Generate(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, fmt.Errorf("generate: %w", err)
	}
	if artifact == nil || len(artifact.Data) == 0 {
		return nil, elapsed, ErrEmptyArtifact
	}

	return artifact, elapsed, nil
}

func requestFromInput(in Input) engine.Request {
	return engine.Request{
		Prompt:         in.Prompt,
		NegativePrompt: in.NegativePrompt,
		Width:          in.Width,
		Height:         in.Height,
		Steps:          in.Steps,
		GuidanceScale:  in.GuidanceScale,
	}
}

// encodeDataURL serializes an artifact into the result payload format
func encodeDataURL(a *engine.Artifact) string {
	mimeType := a.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}
