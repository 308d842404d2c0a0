package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/storage"
)

// stubExtractor returns canned text or a canned error.
type stubExtractor struct {
	text  string
	err   error
	calls int
}

func (s *stubExtractor) ExtractURL(ctx context.Context, url string) (string, error) {
	s.calls++
	return s.text, s.err
}

const sampleText = "Cats are mammals that sleep through most of the day. " +
	"Dogs are loyal companions to their humans. " +
	"Fish live in water tanks and ponds of all sizes."

func newTestPipeline(t *testing.T, ex *stubExtractor, em embedding.Embedder) (*Pipeline, storage.Storage) {
	t.Helper()
	st := newTestStorage(t)
	if em == nil {
		em = embedding.NewMockEmbedder(16)
	}
	p := NewPipeline(ex, em, st, Options{ChunkSize: 20, ChunkOverlap: 5}, nil)
	return p, st
}

func createDoc(t *testing.T, st storage.Storage, id string) {
	t.Helper()
	if err := st.CreateDocument(context.Background(), &models.Document{ID: id, URL: "u"}); err != nil {
		t.Fatal(err)
	}
}

func TestPipeline_Ingest(t *testing.T) {
	ex := &stubExtractor{text: sampleText}
	p, st := newTestPipeline(t, ex, nil)
	ctx := context.Background()
	createDoc(t, st, "d1")

	if err := p.Ingest(ctx, "d1", "https://example.com/a.pdf"); err != nil {
		t.Fatal(err)
	}

	doc, err := st.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if !doc.IsProcessed {
		t.Error("document should be processed after ingest")
	}
	chunks, err := st.GetChunksByDocumentID(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected stored chunks")
	}
	for i, c := range chunks {
		if c.Embedding == nil {
			t.Errorf("chunk %d missing embedding", i)
		}
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.ChunkIndex)
		}
	}
}

func TestPipeline_IngestIdempotent(t *testing.T) {
	ex := &stubExtractor{text: sampleText}
	p, st := newTestPipeline(t, ex, nil)
	ctx := context.Background()
	createDoc(t, st, "d1")

	if err := p.Ingest(ctx, "d1", "u"); err != nil {
		t.Fatal(err)
	}
	first, _ := st.GetChunksByDocumentID(ctx, "d1")

	if err := p.Ingest(ctx, "d1", "u"); err != nil {
		t.Fatal(err)
	}
	second, _ := st.GetChunksByDocumentID(ctx, "d1")

	if len(first) != len(second) {
		t.Errorf("re-ingestion changed chunk count: %d vs %d", len(first), len(second))
	}
	doc, _ := st.GetDocument(ctx, "d1")
	if !doc.IsProcessed {
		t.Error("document should remain processed")
	}
}

func TestPipeline_IngestEmptyText(t *testing.T) {
	ex := &stubExtractor{text: "   \n\t  "}
	p, st := newTestPipeline(t, ex, nil)
	ctx := context.Background()
	createDoc(t, st, "d1")

	if err := p.Ingest(ctx, "d1", "u"); err != nil {
		t.Errorf("empty text is a valid outcome, got error: %v", err)
	}
	doc, _ := st.GetDocument(ctx, "d1")
	if doc.IsProcessed {
		t.Error("document must not be marked processed without chunks")
	}
}

func TestPipeline_IngestExtractionFailure(t *testing.T) {
	ex := &stubExtractor{err: errors.New("fetch failed")}
	p, st := newTestPipeline(t, ex, nil)
	ctx := context.Background()
	createDoc(t, st, "d1")

	if err := p.Ingest(ctx, "d1", "u"); err == nil {
		t.Error("expected error when extraction fails")
	}
	doc, _ := st.GetDocument(ctx, "d1")
	if doc.IsProcessed {
		t.Error("document must stay unprocessed")
	}
}

func TestPipeline_IngestEmbeddingFailureWritesNothing(t *testing.T) {
	ex := &stubExtractor{text: sampleText}
	em := &fixedEmbedder{err: errors.New("quota exceeded")}
	p, st := newTestPipeline(t, ex, em)
	ctx := context.Background()
	createDoc(t, st, "d1")

	if err := p.Ingest(ctx, "d1", "u"); err == nil {
		t.Fatal("expected error from failing embedder")
	}
	chunks, _ := st.GetChunksByDocumentID(ctx, "d1")
	if len(chunks) != 0 {
		t.Errorf("no chunks must be written on embedding failure, got %d", len(chunks))
	}
	doc, _ := st.GetDocument(ctx, "d1")
	if doc.IsProcessed {
		t.Error("document must stay unprocessed")
	}
}

func TestPipeline_IngestAsync(t *testing.T) {
	ex := &stubExtractor{text: sampleText}
	p, st := newTestPipeline(t, ex, nil)
	ctx := context.Background()
	createDoc(t, st, "d1")

	p.IngestAsync("d1", "u")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := st.GetDocument(ctx, "d1")
		if err == nil && doc.IsProcessed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("background ingest did not complete in time")
}

func TestPipeline_GetContextVectorPath(t *testing.T) {
	ex := &stubExtractor{text: sampleText}
	p, st := newTestPipeline(t, ex, nil)
	ctx := context.Background()
	createDoc(t, st, "d1")

	if err := p.Ingest(ctx, "d1", "u"); err != nil {
		t.Fatal(err)
	}
	callsAfterIngest := ex.calls

	result, err := p.GetContext(ctx, "d1", "dogs", 5)
	if err != nil {
		t.Fatal(err)
	}
	if result.Source != SourceVector {
		t.Errorf("Source = %s, want vector", result.Source)
	}
	if result.Text == "" {
		t.Error("expected non-empty context")
	}
	if ex.calls != callsAfterIngest {
		t.Error("vector path must not re-extract the document")
	}
}

func TestPipeline_GetContextKeywordFallback(t *testing.T) {
	ex := &stubExtractor{text: sampleText}
	p, st := newTestPipeline(t, ex, nil)
	ctx := context.Background()
	createDoc(t, st, "d1")

	// Not ingested: falls back to extraction plus keyword matching.
	result, err := p.GetContext(ctx, "d1", "dog", 5)
	if err != nil {
		t.Fatal(err)
	}
	if result.Source != SourceKeyword {
		t.Errorf("Source = %s, want keyword", result.Source)
	}
	first := strings.Split(result.Text, "\n\n")[0]
	if !strings.Contains(first, "Dogs are loyal") {
		t.Errorf("dog sentence should rank first, got %q", first)
	}
}

func TestPipeline_GetContextNoContent(t *testing.T) {
	ex := &stubExtractor{err: errors.New("unreachable")}
	p, st := newTestPipeline(t, ex, nil)
	ctx := context.Background()
	createDoc(t, st, "d1")

	result, err := p.GetContext(ctx, "d1", "anything", 5)
	if err != nil {
		t.Fatalf("no-content conditions must not error, got %v", err)
	}
	if result.Text != "" || result.Source != SourceNone {
		t.Errorf("got %+v, want empty context with source none", result)
	}
}

func TestPipeline_GetContextEmptyQuery(t *testing.T) {
	ex := &stubExtractor{text: sampleText}
	p, st := newTestPipeline(t, ex, nil)
	createDoc(t, st, "d1")

	if _, err := p.GetContext(context.Background(), "d1", "  ", 5); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestPipeline_GetContextUnknownDocument(t *testing.T) {
	ex := &stubExtractor{text: sampleText}
	p, _ := newTestPipeline(t, ex, nil)

	if _, err := p.GetContext(context.Background(), "missing", "query", 5); err == nil {
		t.Error("expected error for unknown document")
	}
}
