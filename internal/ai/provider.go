// Package ai provides the embedding and generation provider interfaces and
// their Gemini implementation.
package ai

import "context"

// Embedder produces fixed-length vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Generator produces a text reply for a grounded prompt under a system
// instruction.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
