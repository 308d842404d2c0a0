// Package storage defines persistence for documents and their vector chunks.
package storage

import (
	"context"

	"github.com/hyperjump/kiku/internal/models"
)

// Storage defines document and vector chunk persistence.
//
// ReplaceChunks is the only write path for chunks: it atomically replaces
// the whole chunk generation of a document and marks it processed, so a
// concurrent reader never observes a mix of old and new chunks.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	SetSummary(ctx context.Context, id, summary string) error

	ReplaceChunks(ctx context.Context, docID string, chunks []*models.VectorChunk) error
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.VectorChunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
