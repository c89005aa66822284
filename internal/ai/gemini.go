package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/notely/assist/internal/models"
)

// Gemini implements Embedder and Generator using the Gemini API.
type Gemini struct {
	client          *genai.Client
	generationModel string
	embeddingModel  string
	dimensions      int
}

// GeminiOption configures a Gemini client.
type GeminiOption func(*Gemini)

// WithGenerationModel overrides the generation model name.
func WithGenerationModel(model string) GeminiOption {
	return func(g *Gemini) { g.generationModel = model }
}

// WithEmbeddingModel overrides the embedding model name.
func WithEmbeddingModel(model string) GeminiOption {
	return func(g *Gemini) { g.embeddingModel = model }
}

// WithDimensions sets the requested embedding dimensionality.
func WithDimensions(d int) GeminiOption {
	return func(g *Gemini) { g.dimensions = d }
}

// NewGemini creates a Gemini-backed provider authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	g := &Gemini{
		client:          client,
		generationModel: "gemini-2.5-flash",
		embeddingModel:  "gemini-embedding-001",
		dimensions:      768,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Embed returns the embedding vector for text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one embedding per input text, in input order.
func (g *Gemini) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	dims := int32(g.dimensions)
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embed content: %v", models.ErrEmbeddingProvider, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", models.ErrEmbeddingProvider, len(resp.Embeddings), len(texts))
	}
	vecs := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", models.ErrEmbeddingProvider, i)
		}
		vecs[i] = emb.Values
	}
	return vecs, nil
}

// Dimensions returns the embedding dimensionality.
func (g *Gemini) Dimensions() int {
	return g.dimensions
}

// Generate invokes the generation model with the given system instruction and
// user prompt and returns the reply text.
func (g *Gemini) Generate(ctx context.Context, system, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, ""),
		Temperature:       genai.Ptr(float32(0.2)),
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.generationModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %v", models.ErrGenerationProvider, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", models.ErrGenerationProvider)
	}
	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("%w: response has no text part", models.ErrGenerationProvider)
	}
	return text, nil
}
