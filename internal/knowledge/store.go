// Package knowledge manages the document corpus behind retrieval: chunking,
// embedding, persistence and the in-memory vector index.
package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notely/assist/internal/ai"
	"github.com/notely/assist/internal/chunker"
	"github.com/notely/assist/internal/models"
	"github.com/notely/assist/internal/storage"
	"github.com/notely/assist/internal/vector"
)

// Store ingests documents and serves similarity search over their chunks.
type Store struct {
	storage  storage.Storage
	embedder ai.Embedder
	index    vector.Index
	logger   *zap.Logger

	chunkSize    int
	chunkOverlap int

	mu     sync.RWMutex
	chunks map[string]*models.Chunk
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a knowledge store. chunkSize and chunkOverlap follow the
// chunker's parameter rules.
func NewStore(st storage.Storage, embedder ai.Embedder, index vector.Index, chunkSize, chunkOverlap int, opts ...Option) (*Store, error) {
	if chunkSize <= chunkOverlap || chunkOverlap < 0 {
		return nil, fmt.Errorf("%w: chunk size %d must exceed overlap %d", models.ErrInvalidParameters, chunkSize, chunkOverlap)
	}
	s := &Store{
		storage:      st,
		embedder:     embedder,
		index:        index,
		logger:       zap.NewNop(),
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		chunks:       make(map[string]*models.Chunk),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Add ingests one document: split into chunks, embed every chunk, persist the
// document and chunks in a single transaction, then extend the index. A
// failure at any step leaves both storage and index unchanged.
func (s *Store) Add(ctx context.Context, title, source, text string) (*models.Document, int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, 0, fmt.Errorf("%w: document %q has no content", models.ErrInvalidParameters, title)
	}
	spans, err := chunker.Split(text, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return nil, 0, err
	}

	texts := make([]string, len(spans))
	for i, sp := range spans {
		texts[i] = sp.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, 0, err
	}
	if len(vectors) != len(spans) {
		return nil, 0, fmt.Errorf("%w: got %d embeddings for %d chunks", models.ErrEmbeddingProvider, len(vectors), len(spans))
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:        uuid.New().String(),
		Title:     title,
		Source:    source,
		RawText:   text,
		CreatedAt: now,
	}
	chunks := make([]*models.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = &models.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Text:       sp.Text,
			Offset:     sp.Offset,
			Seq:        i,
			Embedding:  vectors[i],
			CreatedAt:  now,
		}
	}

	if err := s.storage.CreateDocument(ctx, doc, chunks); err != nil {
		return nil, 0, fmt.Errorf("%w: persist document %s: %v", models.ErrStorage, doc.ID, err)
	}

	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := s.index.Add(ctx, ids, vectors); err != nil {
		// Storage committed but the index did not extend; the next restart
		// rebuild repairs it. Surface the error so callers can log it.
		return doc, len(chunks), fmt.Errorf("index document %s: %w", doc.ID, err)
	}

	s.mu.Lock()
	for _, ch := range chunks {
		s.chunks[ch.ID] = ch
	}
	s.mu.Unlock()

	s.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.String("title", title),
		zap.Int("chunks", len(chunks)))
	return doc, len(chunks), nil
}

// Search embeds the query and returns the top-k most similar chunks, best
// first. An empty corpus yields an empty result, not an error.
func (s *Store) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidParameters, k)
	}
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := s.index.Search(ctx, qv, k)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ScoredChunk, 0, len(results))
	for _, r := range results {
		ch, ok := s.chunks[r.ID]
		if !ok {
			continue
		}
		out = append(out, models.ScoredChunk{Chunk: ch, Score: r.Score})
	}
	return out, nil
}

// ListDocuments returns stored document metadata, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	docs, err := s.storage.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", models.ErrStorage, err)
	}
	return docs, nil
}

// GetDocument returns one document with its raw text.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.storage.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get document %s: %v", models.ErrStorage, id, err)
	}
	return doc, nil
}

// LoadIndex rebuilds the vector index and chunk map from storage. Chunks are
// replayed in creation order so search tie-breaks match the original ingest
// order across restarts.
func (s *Store) LoadIndex(ctx context.Context) (int, error) {
	chunks, err := s.storage.ListChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: load chunks: %v", models.ErrStorage, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		vectors[i] = ch.Embedding
	}
	if err := s.index.Add(ctx, ids, vectors); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	s.mu.Lock()
	for _, ch := range chunks {
		s.chunks[ch.ID] = ch
	}
	s.mu.Unlock()

	s.logger.Info("vector index rebuilt", zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// Stats reports corpus size.
func (s *Store) Stats(ctx context.Context) (documents, chunks int64, err error) {
	documents, err = s.storage.CountDocuments(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: count documents: %v", models.ErrStorage, err)
	}
	chunks, err = s.storage.CountChunks(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: count chunks: %v", models.ErrStorage, err)
	}
	return documents, chunks, nil
}
