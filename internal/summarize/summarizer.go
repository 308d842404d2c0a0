// Package summarize generates cached natural-language document summaries
// via an OpenAI-compatible chat completions API.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hyperjump/kiku/pkg/utils"
)

// Default configuration for the summarizer.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-3.5-turbo"
	// DefaultMaxInputChars bounds the document text sent to the model,
	// roughly 4000 tokens.
	DefaultMaxInputChars = 15000
	DefaultMaxTokens     = 500
	DefaultTimeout       = 60 * time.Second

	systemPrompt = "You are a helpful assistant that creates concise, informative summaries of documents. Focus on key points, main topics, and important information."
)

// Config configures the Summarizer.
type Config struct {
	BaseURL       string
	APIKey        string
	Model         string
	MaxInputChars int
	MaxTokens     int
	Timeout       time.Duration
}

// Summarizer produces a synopsis of a document's extracted text.
type Summarizer struct {
	client        *http.Client
	baseURL       string
	apiKey        string
	model         string
	maxInputChars int
	maxTokens     int
}

// New creates a summarizer from cfg. The API key is required.
func New(cfg Config) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("summarizer API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxInputChars == 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Summarizer{
		client:        &http.Client{Timeout: cfg.Timeout},
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		maxInputChars: cfg.MaxInputChars,
		maxTokens:     cfg.MaxTokens,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize returns a synopsis of text. Input longer than the configured
// limit is truncated before being sent to the model.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	truncated := utils.Truncate(text, s.maxInputChars)

	body, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Please provide a comprehensive summary of the following document:\n\n" + truncated},
		},
		Temperature: 0.3,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("summarize failed: status %d: %s", resp.StatusCode, string(msg))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("summarize returned no content")
	}
	return parsed.Choices[0].Message.Content, nil
}
