package rag

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/storage"
	"github.com/hyperjump/kiku/internal/vector"
)

// ScoredChunk is a retrieved chunk with its similarity to the query.
type ScoredChunk struct {
	Content  string
	Score    float64
	Metadata map[string]interface{}
}

// Retriever ranks a document's stored chunks against a query by cosine
// similarity. Read-only; no side effects on the store.
type Retriever struct {
	embedder embedding.Embedder
	storage  storage.Storage
	logger   *zap.Logger
}

// NewRetriever creates a retriever. logger may be nil.
func NewRetriever(embedder embedding.Embedder, st storage.Storage, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{embedder: embedder, storage: st, logger: logger}
}

// Retrieve embeds the query, scores every stored chunk of the document by
// cosine similarity, and returns the topK best, best-first. Ties keep
// storage fetch order. An empty store yields an empty result, not an
// error; the caller is responsible for falling back. Chunks without an
// embedding, and chunks whose embedding length does not match the query
// vector, score 0. The latter is logged since it usually means the
// embedding model changed under stored data.
func (r *Retriever) Retrieve(ctx context.Context, docID, query string, topK int) ([]ScoredChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := r.storage.GetChunksByDocumentID(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	scored := make([]ScoredChunk, len(chunks))
	for i, chunk := range chunks {
		score := 0.0
		if chunk.Embedding != nil {
			if len(chunk.Embedding) != len(queryVec) {
				r.logger.Warn("chunk embedding dimension mismatch",
					zap.String("document_id", docID),
					zap.String("chunk_id", chunk.ID),
					zap.Int("chunk_dim", len(chunk.Embedding)),
					zap.Int("query_dim", len(queryVec)))
			}
			score = vector.Cosine(queryVec, chunk.Embedding)
		}
		scored[i] = ScoredChunk{Content: chunk.Content, Score: score, Metadata: chunk.Metadata}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}
