package extract

import (
	"errors"
	"fmt"
)

// ErrEmptyContent indicates the source returned a successful response
// with a zero-length body.
var ErrEmptyContent = errors.New("fetched document is empty")

// FetchError indicates the document source was unreachable or answered
// with a non-2xx status. Retryable by the caller.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates the fetched bytes could not be parsed as a PDF.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse pdf: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }
