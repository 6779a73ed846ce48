// Package stub provides a local inference engine that renders placeholder
// images. It behaves like a real backend where it matters to the job
// processor: it is slow, refuses re-entrant use and can be made to fail.
package stub

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/ausonia-api/internal/engine"
)

// FailTrigger makes Generate fail when it appears in a prompt
const FailTrigger = "<fail>"

// DefaultPipelines are the pipeline names the stub accepts when none are given
var DefaultPipelines = []string{
	"StableDiffusionPipeline",
	"StableDiffusionXLPipeline",
}

// Engine is a non-reentrant engine.Engine producing solid-colour PNGs
type Engine struct {
	logger       *slog.Logger
	stepDuration time.Duration
	pipelines    map[string]bool

	mu   sync.Mutex
	busy bool
}

// New creates a stub engine that spends stepDuration per inference step
func New(logger *slog.Logger, stepDuration time.Duration, pipelines ...string) *Engine {
	if len(pipelines) == 0 {
		pipelines = DefaultPipelines
	}
	supported := make(map[string]bool, len(pipelines))
	for _, p := range pipelines {
		supported[p] = true
	}

	return &Engine{
		logger:       logger.With("component", "stub_engine"),
		stepDuration: stepDuration,
		pipelines:    supported,
	}
}

// Supports reports whether pipeline is one of the configured names
func (e *Engine) Supports(pipeline string) bool {
	return e.pipelines[pipeline]
}

// CountTokens counts whitespace-separated words
func (e *Engine) CountTokens(_ context.Context, _ engine.Target, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// Acquire claims the engine. It fails with engine.ErrBusy while another
// pipeline is held.
func (e *Engine) Acquire(_ context.Context, target engine.Target) (engine.Pipeline, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy {
		return nil, engine.ErrBusy
	}
	if !e.pipelines[target.Pipeline] {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnsupportedPipeline, target.Pipeline)
	}
	e.busy = true

	e.logger.Debug("pipeline acquired",
		"model", target.ModelID,
		"pipeline", target.Pipeline)

	return &pipeline{engine: e, target: target}, nil
}

type pipeline struct {
	engine   *Engine
	target   engine.Target
	released sync.Once
}

func (p *pipeline) Generate(ctx context.Context, req engine.Request) (*engine.Artifact, error) {
	if strings.Contains(req.Prompt, FailTrigger) {
		return nil, fmt.Errorf("%w: prompt requested failure", engine.ErrGenerationFailed)
	}

	select {
	case <-time.After(time.Duration(req.Steps) * p.engine.stepDuration):
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", engine.ErrGenerationFailed, ctx.Err())
	}

	img := image.NewRGBA(image.Rect(0, 0, req.Width, req.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: promptColor(req.Prompt)}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", engine.ErrGenerationFailed, err)
	}

	return &engine.Artifact{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}

func (p *pipeline) Release() {
	p.released.Do(func() {
		p.engine.mu.Lock()
		p.engine.busy = false
		p.engine.mu.Unlock()
		p.engine.logger.Debug("pipeline released", "model", p.target.ModelID)
	})
}

// promptColor derives a stable colour from the prompt text
func promptColor(prompt string) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	sum := h.Sum32()
	return color.RGBA{R: uint8(sum >> 16), G: uint8(sum >> 8), B: uint8(sum), A: 0xff}
}

var _ engine.Engine = (*Engine)(nil)
