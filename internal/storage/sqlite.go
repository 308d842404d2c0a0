// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kiku/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT,
		url TEXT NOT NULL,
		is_processed INTEGER NOT NULL DEFAULT 0,
		summary TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS vector_chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB,
		metadata TEXT,
		chunk_index INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON vector_chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_chunk ON vector_chunks(document_id, chunk_index);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a document. IsProcessed always starts false;
// only ReplaceChunks sets it.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.IsProcessed = false

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, name, url, is_processed, summary, created_at, updated_at)
		 VALUES (?, ?, ?, 0, '', ?, ?)`,
		doc.ID, doc.Name, doc.URL, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, is_processed, summary, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Name, &doc.URL, &doc.IsProcessed, &doc.Summary, &doc.CreatedAt, &doc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument removes a document and all of its chunks.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vector_chunks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return tx.Commit()
}

// ListDocuments returns documents with offset and limit, newest first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, url, is_processed, summary, created_at, updated_at
		 FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.URL, &doc.IsProcessed, &doc.Summary, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// SetSummary stores the cached summary for a document.
func (s *SQLiteStorage) SetSummary(ctx context.Context, id, summary string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET summary = ?, updated_at = ? WHERE id = ?`,
		summary, time.Now(), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// ReplaceChunks atomically replaces all chunks for docID with the given
// set and marks the document processed, in a single transaction. A reader
// either sees the full previous generation or the full new one. On any
// failure the transaction rolls back and the document keeps its previous
// chunks and processed state.
func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, docID string, chunks []*models.VectorChunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to store for document %s", docID)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vector_chunks WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("delete existing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vector_chunks (id, document_id, content, embedding, metadata, chunk_index, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, chunk := range chunks {
		var metadataJSON interface{}
		if chunk.Metadata != nil {
			data, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata for chunk %s: %w", chunk.ID, err)
			}
			metadataJSON = string(data)
		}
		chunk.CreatedAt = now
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, docID, chunk.Content, encodeEmbedding(chunk.Embedding), metadataJSON, chunk.ChunkIndex, chunk.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET is_processed = 1, updated_at = ? WHERE id = ?`, now, docID,
	); err != nil {
		return fmt.Errorf("mark document processed: %w", err)
	}

	return tx.Commit()
}

// GetChunksByDocumentID returns all chunks for a document in chunk order.
// An empty result is not an error.
func (s *SQLiteStorage) GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.VectorChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, content, embedding, metadata, chunk_index, created_at
		 FROM vector_chunks WHERE document_id = ? ORDER BY chunk_index`, docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.VectorChunk
	for rows.Next() {
		var chunk models.VectorChunk
		var embeddingBlob []byte
		var metadataJSON sql.NullString
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &embeddingBlob, &metadataJSON, &chunk.ChunkIndex, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		chunk.Embedding = decodeEmbedding(embeddingBlob)
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for chunk %s: %w", chunk.ID, err)
			}
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// CountDocuments returns the number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountChunks returns the number of stored chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_chunks`).Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// encodeEmbedding serializes a vector as little-endian float32 bytes.
// Exact round-trip; nil stays nil.
func encodeEmbedding(vec []float32) []byte {
	if vec == nil {
		return nil
	}
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
