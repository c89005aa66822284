package ai

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder(32)
	a, err := e.Embed(ctx, "how much does notely cost")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "how much does notely cost")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d", i)
		}
	}
}

func TestMockEmbedderUnitLength(t *testing.T) {
	e := NewMockEmbedder(48)
	vec, err := e.Embed(context.Background(), "billing and subscriptions")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-5 {
		t.Errorf("norm = %v, want 1.0", math.Sqrt(sum))
	}
}

func TestMockEmbedderSharedTokensScoreHigher(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder(64)
	q, _ := e.Embed(ctx, "notely billing price")
	near, _ := e.Embed(ctx, "billing price for notely plans")
	far, _ := e.Embed(ctx, "zebra quantum refrigerator")
	if dot(q, near) <= dot(q, far) {
		t.Error("text sharing tokens with the query should score higher")
	}
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestMockEmbedderBatchMatchesSingle(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder(16)
	single, _ := e.Embed(ctx, "alpha")
	batch, err := e.EmbedBatch(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 2 {
		t.Fatalf("got %d vectors", len(batch))
	}
	for i := range single {
		if single[i] != batch[0][i] {
			t.Fatal("batch embedding differs from single embedding")
		}
	}
}
