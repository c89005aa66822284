package knowledge

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notely/assist/internal/ai"
	"github.com/notely/assist/internal/models"
	"github.com/notely/assist/internal/storage"
	"github.com/notely/assist/internal/vector"
)

func newMemoryIndex(t *testing.T, dims int) *vector.Memory {
	t.Helper()
	idx, err := vector.NewMemory(dims)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	return idx
}

func newTestStore(t *testing.T) (*Store, *storage.SQLiteStorage) {
	t.Helper()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "assist.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	embedder := ai.NewMockEmbedder(32)
	s, err := NewStore(st, embedder, newMemoryIndex(t, 32), 80, 20)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, st
}

func TestNewStoreRejectsBadChunkParameters(t *testing.T) {
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "assist.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	_, err = NewStore(st, ai.NewMockEmbedder(8), newMemoryIndex(t, 8), 20, 20)
	if !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("size == overlap: err = %v", err)
	}
	_, err = NewStore(st, ai.NewMockEmbedder(8), newMemoryIndex(t, 8), 20, -1)
	if !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("negative overlap: err = %v", err)
	}
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	doc, n, err := s.Add(ctx, "billing faq", "upload",
		"Notely Pro costs nine dollars per month. Annual billing saves twenty percent. "+
			"Invoices are emailed on the first of the month to the account owner.")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if doc.ID == "" || n == 0 {
		t.Fatalf("doc=%+v chunks=%d", doc, n)
	}

	_, _, err = s.Add(ctx, "unrelated", "upload",
		"The sync engine retries uploads with exponential backoff when the network drops. "+
			"Conflict copies are created when two devices edit the same note offline.")
	if err != nil {
		t.Fatalf("Add second: %v", err)
	}

	results, err := s.Search(ctx, "how much does Notely Pro cost per month", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if !strings.Contains(results[0].Chunk.Text, "dollars") && !strings.Contains(results[0].Chunk.Text, "billing") {
		t.Errorf("top chunk not from billing doc: %q", results[0].Chunk.Text)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted: %v > %v", results[i].Score, results[i-1].Score)
		}
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	s, _ := newTestStore(t)
	results, err := s.Search(context.Background(), "anything", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty corpus", len(results))
	}
}

func TestSearchInvalidK(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Search(context.Background(), "q", 0)
	if !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("err = %v", err)
	}
}

func TestAddEmptyDocument(t *testing.T) {
	s, _ := newTestStore(t)
	_, _, err := s.Add(context.Background(), "empty", "upload", "   ")
	if !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("err = %v", err)
	}
}

func TestAddEmbedderFailureLeavesStorageUnchanged(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "assist.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	s, err := NewStore(st, &failingEmbedder{}, newMemoryIndex(t, 8), 80, 20)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = s.Add(ctx, "doc", "upload", "some text to ingest")
	if !errors.Is(err, models.ErrEmbeddingProvider) {
		t.Fatalf("err = %v", err)
	}
	n, err := st.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("documents = %d, want 0 after failed ingest", n)
	}
	if s.index.Size() != 0 {
		t.Errorf("index size = %d, want 0", s.index.Size())
	}
}

func TestLoadIndexRestoresSearch(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "assist.db")

	st, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	embedder := ai.NewMockEmbedder(32)
	s, err := NewStore(st, embedder, newMemoryIndex(t, 32), 80, 20)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Add(ctx, "shortcuts", "upload",
		"Press control shift N to create a note. Press control P to open the palette."); err != nil {
		t.Fatal(err)
	}
	before, err := s.Search(ctx, "keyboard shortcut create note", 1)
	if err != nil || len(before) == 0 {
		t.Fatalf("search before restart: %v (%d results)", err, len(before))
	}
	_ = st.Close()

	// Fresh process: same database, empty index.
	st2, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	s2, err := NewStore(st2, embedder, newMemoryIndex(t, 32), 80, 20)
	if err != nil {
		t.Fatal(err)
	}
	n, err := s2.LoadIndex(ctx)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if n == 0 {
		t.Fatal("LoadIndex restored no chunks")
	}
	after, err := s2.Search(ctx, "keyboard shortcut create note", 1)
	if err != nil || len(after) == 0 {
		t.Fatalf("search after restart: %v (%d results)", err, len(after))
	}
	if after[0].Chunk.ID != before[0].Chunk.ID {
		t.Errorf("top result changed across restart: %s vs %s", after[0].Chunk.ID, before[0].Chunk.ID)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if _, _, err := s.Add(ctx, "doc", "upload", "enough text for at least one chunk here"); err != nil {
		t.Fatal(err)
	}
	docs, chunks, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if docs != 1 || chunks < 1 {
		t.Errorf("docs=%d chunks=%d", docs, chunks)
	}
}

type failingEmbedder struct{}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, models.ErrEmbeddingProvider
}

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, models.ErrEmbeddingProvider
}

func (f *failingEmbedder) Dimensions() int { return 8 }
