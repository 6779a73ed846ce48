package engine

import "context"

// Target identifies a concrete model resolved from the catalog
type Target struct {
	// ModelID is the catalog selector the caller asked for
	ModelID string

	// Pipeline names the backend capability needed to run the model
	Pipeline string

	// Path locates the model weights or the remote model name
	Path string
}

// Request carries the validated generation parameters for one job
type Request struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	GuidanceScale  float64
}

// Artifact is the raw output of a generation
type Artifact struct {
	Data     []byte
	MIMEType string
}

// Engine is implemented by every inference backend.
type Engine interface {
	// Supports reports whether the backend can run the named pipeline
	Supports(pipeline string) bool

	// CountTokens returns the number of tokens text occupies in the
	// target's tokenizer
	CountTokens(ctx context.Context, target Target, text string) (int, error)

	// Acquire loads the target and returns a Pipeline holding any exclusive
	// resources. The caller must call Release on the returned Pipeline.
	Acquire(ctx context.Context, target Target) (Pipeline, error)
}

// Pipeline is a loaded model ready to generate
type Pipeline interface {
	// Generate runs inference synchronously. It may take minutes.
	Generate(ctx context.Context, req Request) (*Artifact, error)

	// Release frees the resources acquired by Engine.Acquire
	Release()
}
