// Package vector provides cosine-similarity search over chunk embeddings.
package vector

import "context"

// Index defines vector storage and similarity search. The in-memory
// implementation scans linearly; an indexed implementation can replace it
// behind this interface without touching callers.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Size() int
}

// Result is a single similarity search hit. ID is the chunk ID.
type Result struct {
	ID    string
	Score float64
}
