// Package extract turns uploaded statement files into plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	mimePDF  = "application/pdf"
	mimeText = "text/plain"
	mimeCSV  = "text/csv"
)

// ErrUnsupported is returned for file types that cannot be read as text.
var ErrUnsupported = errors.New("unsupported statement format")

// Text extracts readable text from a statement payload.
// PDF goes through github.com/ledongthuc/pdf; text and CSV exports pass through.
func Text(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch normalized := normalizeMimeType(mimeType, fileName); normalized {
	case mimePDF:
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("extract pdf %s: %w", fileName, err)
		}
		return text, nil
	case mimeText, mimeCSV:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s is not valid utf-8", ErrUnsupported, fileName)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, normalized)
	}
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func normalizeMimeType(mimeType string, fileName string) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case mimePDF, mimeCSV:
		return clean
	case mimeText, "application/octet-stream", "":
		switch strings.ToLower(filepath.Ext(fileName)) {
		case ".pdf":
			return mimePDF
		case ".csv":
			return mimeCSV
		case ".txt":
			return mimeText
		}
	}
	return clean
}
