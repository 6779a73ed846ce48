package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/phrazzld/ausonia-api/internal/config"
	"github.com/phrazzld/ausonia-api/internal/engine"
	"google.golang.org/genai"
)

// PipelineImagen is the catalog pipeline name served by this engine
const PipelineImagen = "imagen"

// modelsAPI is the subset of *genai.Models used by the engine
type modelsAPI interface {
	GenerateImages(
		ctx context.Context,
		model string,
		prompt string,
		config *genai.GenerateImagesConfig,
	) (*genai.GenerateImagesResponse, error)
	CountTokens(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.CountTokensConfig,
	) (*genai.CountTokensResponse, error)
}

// Engine generates images with Imagen. Only one pipeline may be held at a
// time, matching the job worker's serial execution.
type Engine struct {
	logger         *slog.Logger
	models         modelsAPI
	tokenizerModel string

	mu   sync.Mutex
	busy bool
}

// NewEngine creates a Gemini-backed engine from the engine configuration
func NewEngine(ctx context.Context, logger *slog.Logger, cfg config.EngineConfig) (*Engine, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", engine.ErrInvalidConfig)
	}
	if cfg.TokenizerModel == "" {
		return nil, fmt.Errorf("%w: tokenizer model cannot be empty", engine.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", engine.ErrInvalidConfig, err)
	}

	return newEngine(logger, client.Models, cfg.TokenizerModel), nil
}

func newEngine(logger *slog.Logger, models modelsAPI, tokenizerModel string) *Engine {
	return &Engine{
		logger:         logger.With("component", "gemini_engine"),
		models:         models,
		tokenizerModel: tokenizerModel,
	}
}

// Supports reports whether pipeline is served by Imagen
func (e *Engine) Supports(pipeline string) bool {
	return pipeline == PipelineImagen
}

// CountTokens counts text with the configured Gemini tokenizer model
func (e *Engine) CountTokens(ctx context.Context, _ engine.Target, text string) (int, error) {
	resp, err := e.models.CountTokens(ctx, e.tokenizerModel, genai.Text(text), nil)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return int(resp.TotalTokens), nil
}

// Acquire binds the target's path as the Imagen model name
func (e *Engine) Acquire(_ context.Context, target engine.Target) (engine.Pipeline, error) {
	if !e.Supports(target.Pipeline) {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnsupportedPipeline, target.Pipeline)
	}
	if target.Path == "" {
		return nil, fmt.Errorf("%w: model %q has no path", engine.ErrInvalidConfig, target.ModelID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return nil, engine.ErrBusy
	}
	e.busy = true

	return &pipeline{engine: e, model: target.Path}, nil
}

type pipeline struct {
	engine   *Engine
	model    string
	released sync.Once
}

func (p *pipeline) Generate(ctx context.Context, req engine.Request) (*engine.Artifact, error) {
	cfg := &genai.GenerateImagesConfig{
		NegativePrompt: req.NegativePrompt,
		NumberOfImages: 1,
		AspectRatio:    aspectRatio(req.Width, req.Height),
		OutputMIMEType: "image/png",
	}
	if req.GuidanceScale > 0 {
		cfg.GuidanceScale = genai.Ptr(float32(req.GuidanceScale))
	}

	p.engine.logger.DebugContext(ctx, "calling Imagen",
		"model", p.model,
		"aspect_ratio", cfg.AspectRatio)

	resp, err := p.engine.models.GenerateImages(ctx, p.model, req.Prompt, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrGenerationFailed, err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0] == nil {
		return nil, fmt.Errorf("%w: no images generated", engine.ErrInvalidResponse)
	}

	generated := resp.GeneratedImages[0]
	if generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		if generated.RAIFilteredReason != "" {
			return nil, fmt.Errorf("%w: %s", engine.ErrContentBlocked, generated.RAIFilteredReason)
		}
		return nil, fmt.Errorf("%w: empty image", engine.ErrInvalidResponse)
	}

	mimeType := generated.Image.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	return &engine.Artifact{Data: generated.Image.ImageBytes, MIMEType: mimeType}, nil
}

func (p *pipeline) Release() {
	p.released.Do(func() {
		p.engine.mu.Lock()
		p.engine.busy = false
		p.engine.mu.Unlock()
	})
}

// supportedRatios are the aspect ratios Imagen accepts
var supportedRatios = []struct {
	name  string
	value float64
}{
	{"1:1", 1},
	{"3:4", 3.0 / 4.0},
	{"4:3", 4.0 / 3.0},
	{"9:16", 9.0 / 16.0},
	{"16:9", 16.0 / 9.0},
}

// aspectRatio returns the supported ratio closest to width:height
func aspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}

	want := float64(width) / float64(height)
	best := supportedRatios[0]
	for _, r := range supportedRatios[1:] {
		if math.Abs(math.Log(r.value/want)) < math.Abs(math.Log(best.value/want)) {
			best = r
		}
	}
	return best.name
}

var _ engine.Engine = (*Engine)(nil)
