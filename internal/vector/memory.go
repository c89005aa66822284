package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/notely/assist/internal/models"
)

// Memory is an in-memory vector index using brute-force cosine similarity.
// Insertion order is preserved and used to break score ties, so results are
// deterministic when the index is filled in chunk creation order.
type Memory struct {
	dimensions int
	mu         sync.RWMutex
	ids        []string
	vectors    [][]float32
	norms      []float64
}

// NewMemory creates an in-memory index for vectors of the given dimensionality.
func NewMemory(dimensions int) (*Memory, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", models.ErrInvalidParameters, dimensions)
	}
	return &Memory{dimensions: dimensions}, nil
}

// Add appends vectors with the given IDs. Vectors are copied; callers may
// reuse their slices.
func (m *Memory) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("%w: ids and vectors length mismatch (%d vs %d)", models.ErrInvalidParameters, len(ids), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("%w: vector dimension %d, index expects %d", models.ErrInvalidParameters, len(vectors[i]), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
		m.norms = append(m.norms, norm(vec))
	}
	return nil
}

// Search returns the top k vectors by cosine similarity, score descending,
// ties broken by insertion order. An empty index yields an empty result, not
// an error; k <= 0 is rejected.
func (m *Memory) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidParameters, k)
	}
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query dimension %d, index expects %d", models.ErrInvalidParameters, len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.ids) == 0 {
		return nil, nil
	}

	qnorm := norm(query)
	scores := make([]Result, len(m.ids))
	for i, vec := range m.vectors {
		scores[i] = Result{ID: m.ids[i], Score: cosine(query, qnorm, vec, m.norms[i])}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Size returns the number of stored vectors.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}
