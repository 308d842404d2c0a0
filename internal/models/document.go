// Package models defines core data structures for documents and vector chunks.
package models

import "time"

// Document represents an uploaded document tracked by the service.
// IsProcessed becomes true only after at least one embedding generation
// has been stored for the document.
type Document struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	URL         string    `json:"url" db:"url"`
	IsProcessed bool      `json:"is_processed" db:"is_processed"`
	Summary     string    `json:"summary,omitempty" db:"summary"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// VectorChunk is one embedded text segment of a document. Chunks are
// written in bulk during ingestion and replaced as a whole generation;
// no chunk is ever mutated in place.
type VectorChunk struct {
	ID         string                 `json:"id" db:"id"`
	DocumentID string                 `json:"document_id" db:"document_id"`
	Content    string                 `json:"content" db:"content"`
	Embedding  []float32              `json:"-" db:"-"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"-"`
	ChunkIndex int                    `json:"chunk_index" db:"chunk_index"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}

// DocumentInput is the input for registering a document.
type DocumentInput struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}
