package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/keyword"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/storage"
)

// Default retrieval parameters.
const (
	DefaultTopK             = 5
	DefaultKeywordMaxChunks = 3

	ingestTimeout = 5 * time.Minute
)

// ContextSource identifies which retrieval path produced a context.
type ContextSource string

const (
	SourceVector  ContextSource = "vector"
	SourceKeyword ContextSource = "keyword"
	SourceNone    ContextSource = "none"
)

// Context is retrieved document context for a query. Text is empty when
// no content is available; that is a valid outcome, not an error.
type Context struct {
	Text   string        `json:"context"`
	Source ContextSource `json:"source"`
}

// Options tunes the pipeline. Zero values fall back to defaults.
type Options struct {
	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	KeywordMaxChunks int
}

func (o *Options) applyDefaults() {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap == 0 {
		o.ChunkOverlap = DefaultChunkOverlap
	}
	if o.TopK == 0 {
		o.TopK = DefaultTopK
	}
	if o.KeywordMaxChunks == 0 {
		o.KeywordMaxChunks = DefaultKeywordMaxChunks
	}
}

// TextExtractor extracts plain text from a document URL.
// *extract.Extractor satisfies this.
type TextExtractor interface {
	ExtractURL(ctx context.Context, url string) (string, error)
}

// Pipeline orchestrates ingestion (extract, chunk, embed, store) and
// query-time retrieval with keyword fallback.
type Pipeline struct {
	extractor TextExtractor
	embedder  embedding.Embedder
	storage   storage.Storage
	retriever *Retriever
	opts      Options
	logger    *zap.Logger
}

// NewPipeline creates a pipeline with the given dependencies. logger may
// be nil.
func NewPipeline(ex TextExtractor, em embedding.Embedder, st storage.Storage, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults()
	return &Pipeline{
		extractor: ex,
		embedder:  em,
		storage:   st,
		retriever: NewRetriever(em, st, logger),
		opts:      opts,
		logger:    logger,
	}
}

// Ingest runs the full ingestion for one document: extract text from url,
// chunk, embed, and atomically replace the document's stored chunks. The
// document is marked processed only after a successful store. Re-invoking
// is safe: each run replaces the previous chunk generation wholesale.
//
// An extraction that yields no text is a clean "nothing to index" outcome:
// Ingest returns nil and the document stays unprocessed.
func (p *Pipeline) Ingest(ctx context.Context, docID, url string) error {
	text, err := p.extractor.ExtractURL(ctx, url)
	if err != nil {
		return fmt.Errorf("extract document %s: %w", docID, err)
	}
	if strings.TrimSpace(text) == "" {
		p.logger.Info("document has no extractable text, skipping indexing",
			zap.String("document_id", docID))
		return nil
	}

	chunks, err := SplitText(text, p.opts.ChunkSize, p.opts.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("chunk document %s: %w", docID, err)
	}
	if len(chunks) == 0 {
		p.logger.Info("chunking produced no chunks, skipping indexing",
			zap.String("document_id", docID))
		return nil
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks for document %s: %w", docID, err)
	}

	vcs := make([]*models.VectorChunk, len(chunks))
	for i, content := range chunks {
		vcs[i] = &models.VectorChunk{
			ID:         uuid.New().String(),
			DocumentID: docID,
			Content:    content,
			Embedding:  embeddings[i],
			ChunkIndex: i,
		}
	}
	if err := p.storage.ReplaceChunks(ctx, docID, vcs); err != nil {
		return fmt.Errorf("store chunks for document %s: %w", docID, err)
	}

	p.logger.Info("document ingested",
		zap.String("document_id", docID),
		zap.Int("chunks", len(vcs)))
	return nil
}

// IngestAsync runs Ingest in a detached goroutine. Failures are logged and
// never propagate: the triggering request (typically upload completion)
// must not block on or fail because of indexing.
func (p *Pipeline) IngestAsync(docID, url string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("background ingest panicked",
					zap.String("document_id", docID),
					zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()
		if err := p.Ingest(ctx, docID, url); err != nil {
			p.logger.Error("background ingest failed",
				zap.String("document_id", docID),
				zap.Error(err))
		}
	}()
}

// GetContext returns the context for answering query about a document,
// joining the retrieved segments with blank lines. Processed documents go
// through vector retrieval; unprocessed ones (or processed ones yielding
// no hits) fall back to re-extracting the text and keyword matching.
// Conditions where no content is available (failed extraction, empty text)
// collapse to an empty Context, never an error. Errors are reserved for
// malformed inputs and unknown documents.
func (p *Pipeline) GetContext(ctx context.Context, docID, query string, topK int) (*Context, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if topK <= 0 {
		topK = p.opts.TopK
	}

	doc, err := p.storage.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	if doc.IsProcessed {
		results, err := p.retriever.Retrieve(ctx, docID, query, topK)
		if err != nil {
			p.logger.Warn("vector retrieval failed, falling back to keyword search",
				zap.String("document_id", docID),
				zap.Error(err))
		} else if len(results) > 0 {
			parts := make([]string, len(results))
			for i, res := range results {
				parts[i] = res.Content
			}
			return &Context{Text: strings.Join(parts, "\n\n"), Source: SourceVector}, nil
		}
	}

	text, err := p.extractor.ExtractURL(ctx, doc.URL)
	if err != nil {
		p.logger.Warn("fallback extraction failed",
			zap.String("document_id", docID),
			zap.Error(err))
		return &Context{Source: SourceNone}, nil
	}
	if strings.TrimSpace(text) == "" {
		return &Context{Source: SourceNone}, nil
	}

	segments := keyword.Retrieve(text, query, p.opts.KeywordMaxChunks)
	if len(segments) == 0 {
		return &Context{Source: SourceNone}, nil
	}
	return &Context{Text: strings.Join(segments, "\n\n"), Source: SourceKeyword}, nil
}
