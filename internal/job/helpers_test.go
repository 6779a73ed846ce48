package job

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/ausonia-api/internal/engine"
	"github.com/stretchr/testify/require"
)

const testPipeline = "TestPipeline"

var errEngineFailure = errors.New("engine exploded")

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// mapResolver resolves selectors from a fixed map
type mapResolver map[string]engine.Target

func (m mapResolver) Resolve(selector string) (engine.Target, bool) {
	t, ok := m[selector]
	return t, ok
}

func newTestResolver() mapResolver {
	return mapResolver{
		"test-model":   {ModelID: "test-model", Pipeline: testPipeline, Path: "/models/test.safetensors"},
		"legacy-model": {ModelID: "legacy-model", Pipeline: "LegacyPipeline", Path: "/models/legacy.safetensors"},
	}
}

// fakeEngine implements engine.Engine for testing. It counts whitespace
// tokens and tracks how many pipelines are held at once.
type fakeEngine struct {
	generateFn func(ctx context.Context, req engine.Request) (*engine.Artifact, error)
	countErr   error

	acquired   atomic.Int32
	released   atomic.Int32
	active     atomic.Int32
	maxActive  atomic.Int32
	countCalls atomic.Int32
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		generateFn: func(ctx context.Context, req engine.Request) (*engine.Artifact, error) {
			return &engine.Artifact{Data: []byte("image:" + req.Prompt), MIMEType: "image/png"}, nil
		},
	}
}

func (f *fakeEngine) Supports(pipeline string) bool {
	return pipeline == testPipeline
}

func (f *fakeEngine) CountTokens(_ context.Context, _ engine.Target, text string) (int, error) {
	f.countCalls.Add(1)
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	inWord := false
	for _, r := range text {
		if r == ' ' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n, nil
}

func (f *fakeEngine) Acquire(_ context.Context, _ engine.Target) (engine.Pipeline, error) {
	f.acquired.Add(1)
	active := f.active.Add(1)
	for {
		peak := f.maxActive.Load()
		if active <= peak || f.maxActive.CompareAndSwap(peak, active) {
			break
		}
	}
	return &fakePipeline{engine: f}, nil
}

type fakePipeline struct {
	engine *fakeEngine
	once   sync.Once
}

func (p *fakePipeline) Generate(ctx context.Context, req engine.Request) (*engine.Artifact, error) {
	return p.engine.generateFn(ctx, req)
}

func (p *fakePipeline) Release() {
	p.once.Do(func() {
		p.engine.active.Add(-1)
		p.engine.released.Add(1)
	})
}

func testConfig() Config {
	return Config{
		PollInterval:    20 * time.Millisecond,
		MaxPromptTokens: 10,
	}
}

func validInput(prompt string) Input {
	return Input{
		Model:          "test-model",
		Prompt:         prompt,
		NegativePrompt: "blurry",
		Width:          512,
		Height:         512,
		Steps:          20,
		GuidanceScale:  7.5,
	}
}

// waitForTerminal polls the processor until id reaches a terminal status
func waitForTerminal(t *testing.T, p *Processor, id uuid.UUID) Record {
	t.Helper()
	var rec Record
	require.Eventually(t, func() bool {
		var ok bool
		rec, ok = p.Status(id)
		return ok && rec.Status.IsTerminal()
	}, 3*time.Second, 5*time.Millisecond, "job %s did not reach a terminal status", id)
	return rec
}

// waitForStatus polls the processor until id reports want
func waitForStatus(t *testing.T, p *Processor, id uuid.UUID, want Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec, ok := p.Status(id)
		return ok && rec.Status == want
	}, 3*time.Second, 5*time.Millisecond, "job %s did not reach %s", id, want)
}
