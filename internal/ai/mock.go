package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// MockEmbedder is a deterministic embedder for development and tests. The
// vector is derived from token hashes so that texts sharing words land near
// each other, and identical text always embeds identically.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a deterministic embedder of the given dimensionality.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a unit-length vector derived from the text's tokens.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		seed := h.Sum32()
		for i := 0; i < e.dimensions; i++ {
			vec[i] += float32(math.Sin(float64(seed%1000)*float64(i+1)*0.1 + float64(seed%7)))
		}
	}
	normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Dimensions returns the embedding dimensionality.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

func normalize(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= inv
	}
}

// MockGenerator is a scripted generator for development and tests.
type MockGenerator struct {
	// Reply is returned verbatim; when empty, the prompt is echoed truncated.
	Reply string
	// Err, when set, is returned by every call.
	Err error
}

// Generate returns the scripted reply or error.
func (g *MockGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.Reply != "" {
		return g.Reply, nil
	}
	if len(prompt) > 200 {
		prompt = prompt[:200]
	}
	return "[mock] " + prompt, nil
}
