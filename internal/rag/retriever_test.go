package rag

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/storage"
)

// fixedEmbedder returns the same vector for every text, or a fixed error.
type fixedEmbedder struct {
	vec []float32
	err error
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fixedEmbedder) Dimensions() int { return len(f.vec) }
func (f *fixedEmbedder) Close() error    { return nil }

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func storeChunks(t *testing.T, st storage.Storage, docID string, chunks []*models.VectorChunk) {
	t.Helper()
	if err := st.CreateDocument(context.Background(), &models.Document{ID: docID, URL: "u"}); err != nil {
		t.Fatal(err)
	}
	if err := st.ReplaceChunks(context.Background(), docID, chunks); err != nil {
		t.Fatal(err)
	}
}

func TestRetriever_RankingOrder(t *testing.T) {
	st := newTestStorage(t)
	// Query vector (1,0,0); chunk similarities 1.0, 0.5, 0.0.
	storeChunks(t, st, "d1", []*models.VectorChunk{
		{ID: "low", DocumentID: "d1", Content: "low", Embedding: []float32{0, 1, 0}, ChunkIndex: 0},
		{ID: "high", DocumentID: "d1", Content: "high", Embedding: []float32{1, 0, 0}, ChunkIndex: 1},
		{ID: "mid", DocumentID: "d1", Content: "mid", Embedding: []float32{0.5, 0.8660254, 0}, ChunkIndex: 2},
	})
	r := NewRetriever(&fixedEmbedder{vec: []float32{1, 0, 0}}, st, nil)

	results, err := r.Retrieve(context.Background(), "d1", "query", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content != "high" || results[1].Content != "mid" {
		t.Errorf("wrong ranking: %q, %q", results[0].Content, results[1].Content)
	}
	if results[0].Score < 0.99 {
		t.Errorf("best score = %f, want ~1", results[0].Score)
	}
}

func TestRetriever_EmptyStore(t *testing.T) {
	st := newTestStorage(t)
	r := NewRetriever(&fixedEmbedder{vec: []float32{1, 0}}, st, nil)

	results, err := r.Retrieve(context.Background(), "missing", "query", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %d", len(results))
	}
}

func TestRetriever_TopKLargerThanStore(t *testing.T) {
	st := newTestStorage(t)
	storeChunks(t, st, "d1", []*models.VectorChunk{
		{ID: "a", DocumentID: "d1", Content: "a", Embedding: []float32{1, 0}, ChunkIndex: 0},
	})
	r := NewRetriever(&fixedEmbedder{vec: []float32{1, 0}}, st, nil)

	results, err := r.Retrieve(context.Background(), "d1", "query", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestRetriever_DimensionMismatchScoresZero(t *testing.T) {
	st := newTestStorage(t)
	storeChunks(t, st, "d1", []*models.VectorChunk{
		{ID: "short", DocumentID: "d1", Content: "short", Embedding: []float32{1, 0}, ChunkIndex: 0},
		{ID: "full", DocumentID: "d1", Content: "full", Embedding: []float32{1, 0, 0}, ChunkIndex: 1},
	})
	r := NewRetriever(&fixedEmbedder{vec: []float32{1, 0, 0}}, st, nil)

	results, err := r.Retrieve(context.Background(), "d1", "query", 2)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Content != "full" {
		t.Errorf("matching-dimension chunk should rank first, got %q", results[0].Content)
	}
	if results[1].Score != 0 {
		t.Errorf("mismatched chunk score = %f, want 0", results[1].Score)
	}
}

func TestRetriever_EmbedFailure(t *testing.T) {
	st := newTestStorage(t)
	r := NewRetriever(&fixedEmbedder{err: errors.New("provider down")}, st, nil)

	if _, err := r.Retrieve(context.Background(), "d1", "query", 5); err == nil {
		t.Error("expected error when query embedding fails")
	}
}

func TestRetriever_InvalidTopK(t *testing.T) {
	st := newTestStorage(t)
	r := NewRetriever(&fixedEmbedder{vec: []float32{1}}, st, nil)
	if _, err := r.Retrieve(context.Background(), "d1", "query", 0); err == nil {
		t.Error("expected error for non-positive topK")
	}
}
