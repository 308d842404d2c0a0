// Package rag implements the retrieval-augmented generation pipeline:
// chunking, similarity retrieval, and the ingest/query orchestration.
package rag

import (
	"fmt"
	"strings"
)

// Default chunking parameters, sized for embedding-model input limits.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// SplitText splits text into overlapping character windows of chunkSize,
// advancing by chunkSize-overlap so consecutive windows share overlap
// characters. Windows are trimmed and empty ones dropped; the last window
// may be shorter. Pure and deterministic: the same input always yields the
// same chunks. Returns an error when overlap >= chunkSize, which would
// otherwise never terminate.
func SplitText(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d with chunk size %d", overlap, chunkSize)
	}

	runes := []rune(text)
	step := chunkSize - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(runes) {
			break
		}
	}
	return chunks, nil
}
