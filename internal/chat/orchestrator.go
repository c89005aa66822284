// Package chat answers user queries with retrieval-augmented generation.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/notely/assist/internal/ai"
	"github.com/notely/assist/internal/intent"
	"github.com/notely/assist/internal/models"
)

// FallbackReply is returned whenever retrieval or generation fails. Users
// always get an answer even when the providers are down.
const FallbackReply = "Sorry, I'm having trouble answering right now. Please try again in a moment."

const systemInstruction = "You are the Notely assistant. Answer questions about the Notely " +
	"note-taking product using only the provided context. If the context does not " +
	"contain the answer, say you don't know and suggest contacting support. Keep " +
	"answers short and concrete."

// Searcher is the retrieval capability the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)
}

// Orchestrator classifies, retrieves and generates a reply for each query. It
// has no side effects: logging and broadcasting belong to the caller so tests
// can exercise generation in isolation.
type Orchestrator struct {
	classifier *intent.Classifier
	searcher   Searcher
	generator  ai.Generator
	logger     *zap.Logger

	topK    int
	timeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator wires the pipeline. topK is the number of chunks retrieved
// as grounding context; timeout bounds the generation call.
func NewOrchestrator(classifier *intent.Classifier, searcher Searcher, generator ai.Generator, topK int, timeout time.Duration, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: classifier,
		searcher:   searcher,
		generator:  generator,
		logger:     zap.NewNop(),
		topK:       topK,
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Answer returns a reply and the classified intent for query. Intent
// classification is pure and always succeeds; any failure in retrieval or
// generation degrades to FallbackReply with the intent intact, never an error.
func (o *Orchestrator) Answer(ctx context.Context, query string) (reply, label string) {
	label = o.classifier.Classify(query)

	chunks, err := o.searcher.Search(ctx, query, o.topK)
	if err != nil {
		o.logger.Warn("retrieval failed, using fallback reply", zap.Error(err))
		return FallbackReply, label
	}

	prompt := buildPrompt(chunks, query)

	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	reply, err = o.generator.Generate(genCtx, systemInstruction, prompt)
	if err != nil || strings.TrimSpace(reply) == "" {
		o.logger.Warn("generation failed, using fallback reply",
			zap.String("intent", label), zap.Error(err))
		return FallbackReply, label
	}
	return reply, label
}

// buildPrompt lays out the grounding context in descending similarity order,
// then the user's question.
func buildPrompt(chunks []models.ScoredChunk, query string) string {
	var b strings.Builder
	if len(chunks) == 0 {
		b.WriteString("Context: (no relevant documents found)\n\n")
	} else {
		b.WriteString("Context:\n")
		for i, sc := range chunks {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(sc.Chunk.Text))
		}
		b.WriteString("\n")
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}
