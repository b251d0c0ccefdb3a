package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wudi/pdfkit/extractor"
	"github.com/wudi/pdfkit/ir"
)

// PDFExtractor pulls the embedded text layer out of a PDF. Scanned PDFs
// without a text layer yield an empty string, not an error.
type PDFExtractor struct{}

// NewPDFExtractor creates a text-layer extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractText parses the PDF and concatenates page text with page markers,
// matching the OCR output framing so downstream line matching works on
// either source.
func (e *PDFExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	pipe := ir.NewDefault()
	doc, err := pipe.Parse(ctx, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	dec := doc.Decoded()
	if dec == nil {
		return "", errors.New("pdf pipeline produced no decoded document")
	}

	ext, err := extractor.New(dec)
	if err != nil {
		return "", fmt.Errorf("init pdf extractor: %w", err)
	}

	pages, err := ext.ExtractText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var b strings.Builder
	for _, page := range pages {
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n\n", page.Page+1, page.Content)
	}
	return strings.TrimSpace(b.String()), nil
}

var _ NativeExtractor = (*PDFExtractor)(nil)
