package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client abstracts the text generation provider.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Document is a file attached to a generation request.
type Document struct {
	Name     string
	MimeType string
	Data     []byte
}

// Request is a single prompt sent to the provider.
type Request struct {
	System          string
	Prompt          string
	Document        *Document
	MaxOutputTokens int
	Temperature     float64
	JSONOutput      bool
}

// HasDocument reports whether the request carries an attached file.
// Providers use a longer timeout for these.
func (r Request) HasDocument() bool {
	return r.Document != nil && len(r.Document.Data) > 0
}

var (
	// ErrNotImplemented is returned by the placeholder client.
	ErrNotImplemented = errors.New("LLM not implemented")
	// ErrDocumentTooLarge is returned before any conversion or upload work.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
)

// CheckDocumentSize rejects documents larger than max bytes.
func CheckDocumentSize(doc *Document, max int64) error {
	if doc == nil || max <= 0 {
		return nil
	}
	if int64(len(doc.Data)) > max {
		return fmt.Errorf("%w: %d bytes > %d bytes", ErrDocumentTooLarge, len(doc.Data), max)
	}
	return nil
}

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Generate returns ErrNotImplemented.
func (PlaceholderClient) Generate(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotImplemented
}

// StaticClient returns a fixed response. Used for local runs without a provider key.
type StaticClient struct {
	Response string
}

// Generate returns the configured response.
func (c StaticClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Prompt) == "" && !req.HasDocument() {
		return "", errors.New("empty prompt")
	}
	return c.Response, nil
}
