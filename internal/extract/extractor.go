// Package extract fetches remote PDF documents and extracts their plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ledongthuc/pdf"
)

const defaultTimeout = 60 * time.Second

// Extractor downloads a PDF by URL and extracts its text content.
type Extractor struct {
	client *http.Client
}

// NewExtractor creates an extractor. client may be nil; a default client
// with a 60s timeout is used then.
func NewExtractor(client *http.Client) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Extractor{client: client}
}

// ExtractURL fetches the PDF at url and returns its extracted plain text.
// A successful parse of a scanned or image-only PDF may yield an empty or
// whitespace-only string; that is a valid result, not an error.
func (e *Extractor) ExtractURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{URL: url, Status: resp.StatusCode}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	if len(content) == 0 {
		return "", fmt.Errorf("%s: %w", url, ErrEmptyContent)
	}

	return extractPDF(content)
}

func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", &ParseError{Err: err}
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", &ParseError{Err: fmt.Errorf("page %d: %w", i+1, err)}
		}
		buf.WriteString(text)
		if i < numPages-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}
