package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Default configuration for the OpenAI embeddings client.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-small"
	DefaultDimensions = 1536
	DefaultBatchSize  = 100
	DefaultBatchDelay = 100 * time.Millisecond
	DefaultTimeout    = 30 * time.Second
)

// OpenAIConfig configures the OpenAI-compatible embeddings client.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	// BatchSize is the maximum number of inputs per provider request.
	BatchSize int
	// BatchDelay is the pacing delay between consecutive sub-batch
	// requests, a courtesy toward provider rate limits.
	BatchDelay time.Duration
	Timeout    time.Duration
	CacheSize  int
}

// OpenAIEmbedder generates embeddings via the OpenAI embeddings API (or
// any API-compatible endpoint). Large inputs are split into sub-batches
// and paced with a rate limiter. Single-text embeddings are cached.
type OpenAIEmbedder struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	batchSize  int
	limiter    *rate.Limiter
	cache      *Cache
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewOpenAIEmbedder creates an embedder from cfg. The API key is required;
// everything else falls back to defaults.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}
	return &OpenAIEmbedder{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  cfg.BatchSize,
		limiter:    rate.NewLimiter(rate.Every(cfg.BatchDelay), 1),
		cache:      cache,
	}, nil
}

// Embed returns the embedding for a single text, consulting the cache
// first. Query texts repeat across a conversation; chunk texts do not,
// so only this path is cached.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if vec, ok := e.cache.Get(text); ok {
			return vec, nil
		}
	}
	vecs, err := e.embedRequest(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(text, vecs[0])
	}
	return vecs[0], nil
}

// EmbedBatch returns one embedding per input text, in input order. Inputs
// are split into sub-batches of at most BatchSize, with the configured
// pacing delay between consecutive provider calls. Any provider failure
// aborts the whole batch.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		if start > 0 {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, &ProviderError{Err: err}
			}
		}
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedRequest(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedRequest(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Input: inputs})
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("marshal request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{Status: resp.StatusCode, Message: string(msg)}
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Data) != len(inputs) {
		return nil, &ProviderError{Message: fmt.Sprintf("expected %d embeddings, got %d", len(inputs), len(parsed.Data))}
	}

	// The API may return items out of order; place by index.
	vecs := make([][]float32, len(inputs))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(inputs) {
			return nil, &ProviderError{Message: fmt.Sprintf("embedding index %d out of range", item.Index)}
		}
		vecs[item.Index] = item.Embedding
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, &ProviderError{Message: fmt.Sprintf("missing embedding for input %d", i)}
		}
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the embedder holds no persistent connections.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
