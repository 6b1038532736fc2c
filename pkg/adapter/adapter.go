package adapter

import "context"

// Embedder converts text into a fixed-dimension vector. One Embedder
// instance always emits vectors of exactly Dimensions() width; switching
// to a provider with a different width is a table migration, never a
// runtime branch.
type Embedder interface {
	// Embed returns the embedding of text. Empty or whitespace-only
	// text fails with model.ErrEmptyInput before any network call.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector width of this provider instance.
	Dimensions() int
}

// LLM generates a single completion. Used only by the question-answering
// path of the retrieval engine.
type LLM interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// completionTemperature keeps answers deterministic-ish; retrieval QA
// wants grounded extraction, not creativity.
const completionTemperature = 0.1
