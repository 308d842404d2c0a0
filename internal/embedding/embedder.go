// Package embedding provides text embedding via a remote provider, with
// batching, rate-limit pacing, and caching.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// ProviderError indicates the embedding provider call failed (network,
// auth, quota, or a malformed response). It always propagates out of the
// embedding layer; callers decide whether to swallow it.
type ProviderError struct {
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding provider: %v", e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("embedding provider: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("embedding provider: %s", e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }
