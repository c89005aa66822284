package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/notely/assist/internal/ai"
	"github.com/notely/assist/internal/intent"
	"github.com/notely/assist/internal/models"
)

type stubSearcher struct {
	chunks []models.ScoredChunk
	err    error
}

func (s *stubSearcher) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	return s.chunks, s.err
}

func billingChunks() []models.ScoredChunk {
	return []models.ScoredChunk{
		{Chunk: &models.Chunk{ID: "c1", Text: "Notely Pro costs nine dollars per month."}, Score: 0.92},
		{Chunk: &models.Chunk{ID: "c2", Text: "Annual billing saves twenty percent."}, Score: 0.71},
	}
}

func TestAnswerSuccess(t *testing.T) {
	o := NewOrchestrator(
		intent.NewClassifier(intent.DefaultRules()),
		&stubSearcher{chunks: billingChunks()},
		&ai.MockGenerator{Reply: "Notely Pro is $9/month; annual billing saves 20%."},
		4, time.Second,
	)
	reply, label := o.Answer(context.Background(), "how much does notely cost")
	if label != "billing" {
		t.Errorf("intent = %q, want billing", label)
	}
	if reply == FallbackReply || reply == "" {
		t.Errorf("reply = %q", reply)
	}
}

func TestAnswerGeneratorFailureFallsBack(t *testing.T) {
	o := NewOrchestrator(
		intent.NewClassifier(intent.DefaultRules()),
		&stubSearcher{chunks: billingChunks()},
		&ai.MockGenerator{Err: models.ErrGenerationProvider},
		4, time.Second,
	)
	reply, label := o.Answer(context.Background(), "how much does notely cost")
	if reply != FallbackReply {
		t.Errorf("reply = %q, want fallback", reply)
	}
	if label != "billing" {
		t.Errorf("intent = %q, classification must survive provider failure", label)
	}
}

func TestAnswerSearchFailureFallsBack(t *testing.T) {
	o := NewOrchestrator(
		intent.NewClassifier(intent.DefaultRules()),
		&stubSearcher{err: errors.New("index unavailable")},
		&ai.MockGenerator{Reply: "should not be reached"},
		4, time.Second,
	)
	reply, label := o.Answer(context.Background(), "hello")
	if reply != FallbackReply {
		t.Errorf("reply = %q, want fallback", reply)
	}
	if label != "greeting" {
		t.Errorf("intent = %q", label)
	}
}

func TestAnswerEmptyGenerationFallsBack(t *testing.T) {
	o := NewOrchestrator(
		intent.NewClassifier(intent.DefaultRules()),
		&stubSearcher{chunks: billingChunks()},
		&ai.MockGenerator{Reply: "   "},
		4, time.Second,
	)
	reply, _ := o.Answer(context.Background(), "pricing")
	if reply != FallbackReply {
		t.Errorf("reply = %q, want fallback for blank generation", reply)
	}
}

func TestAnswerGenerationTimeout(t *testing.T) {
	o := NewOrchestrator(
		intent.NewClassifier(intent.DefaultRules()),
		&stubSearcher{chunks: billingChunks()},
		&slowGenerator{delay: 200 * time.Millisecond},
		4, 10*time.Millisecond,
	)
	start := time.Now()
	reply, _ := o.Answer(context.Background(), "pricing")
	if reply != FallbackReply {
		t.Errorf("reply = %q, want fallback on timeout", reply)
	}
	if time.Since(start) > 150*time.Millisecond {
		t.Error("timeout was not enforced")
	}
}

func TestBuildPromptLayout(t *testing.T) {
	prompt := buildPrompt(billingChunks(), "how much?")
	first := strings.Index(prompt, "nine dollars")
	second := strings.Index(prompt, "Annual billing")
	if first < 0 || second < 0 || first > second {
		t.Errorf("context not in descending score order:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "Question: how much?") {
		t.Errorf("question not last:\n%s", prompt)
	}

	empty := buildPrompt(nil, "q")
	if !strings.Contains(empty, "no relevant documents") {
		t.Errorf("empty context prompt:\n%s", empty)
	}
}

type slowGenerator struct {
	delay time.Duration
}

func (g *slowGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	select {
	case <-time.After(g.delay):
		return "late", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
