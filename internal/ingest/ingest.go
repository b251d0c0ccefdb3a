// Package ingest routes uploaded files to the right text-acquisition
// strategy. Plain text decodes inline; PDFs and images go to external
// extraction services behind narrow interfaces.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/rfqworks/rfqd/internal/logging"
)

// ErrUnsupportedType rejects file types the router cannot acquire text from.
var ErrUnsupportedType = errors.New("unsupported file type")

// OCRClient recognizes text in PDFs and images. Layout-preserving: tables
// come back as markdown-ish rows.
type OCRClient interface {
	Recognize(ctx context.Context, fileName string, data []byte) (string, error)
}

// NativeExtractor reads a PDF's embedded text layer. Character-perfect when
// present, empty when the PDF is a pure scan.
type NativeExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// Source identifies the acquisition strategy that produced a document's text.
type Source string

const (
	SourceHybridPDF Source = "hybrid_pdf"
	SourceOCR       Source = "ocr"
	SourceText      Source = "native_text"
)

// Document is acquired text ready for masking and extraction.
type Document struct {
	FileName string
	MimeType string
	Source   Source
	// RawText is the layout-preserving text (OCR output, or the file
	// contents for plain-text uploads).
	RawText string
	// NativeText is the PDF text layer. Empty for non-PDF sources and for
	// scanned PDFs.
	NativeText string
}

// Router picks an acquisition strategy per upload.
type Router struct {
	ocr    OCRClient
	native NativeExtractor
	logger *logging.Logger
}

// NewRouter creates a router. native may be nil when no PDF text-layer
// extractor is available; PDFs then rely on OCR alone.
func NewRouter(ocr OCRClient, native NativeExtractor, logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Router{ocr: ocr, native: native, logger: logger.Named("ingest")}
}

// Acquire extracts text from one uploaded file. PDF uploads use the hybrid
// strategy: the native text layer (best character accuracy) plus OCR (best
// table layout), both returned so downstream scoring can cross-check.
func (r *Router) Acquire(ctx context.Context, fileName, mimeType string, data []byte) (*Document, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	r.logger.Info("acquiring document",
		zap.String("file_name", fileName),
		zap.String("mime_type", mimeType),
		zap.Int("size_bytes", len(data)))

	switch {
	case mimeType == "application/pdf" || ext == "pdf":
		return r.acquirePDF(ctx, fileName, mimeType, data)

	case strings.HasPrefix(mimeType, "image/") || isImageExt(ext):
		text, err := r.ocr.Recognize(ctx, fileName, data)
		if err != nil {
			return nil, fmt.Errorf("ocr: %w", err)
		}
		return &Document{FileName: fileName, MimeType: mimeType, Source: SourceOCR, RawText: text}, nil

	case ext == "txt" || ext == "csv" || strings.HasPrefix(mimeType, "text/"):
		return &Document{
			FileName: fileName,
			MimeType: mimeType,
			Source:   SourceText,
			RawText:  strings.ToValidUTF8(string(data), ""),
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
}

func (r *Router) acquirePDF(ctx context.Context, fileName, mimeType string, data []byte) (*Document, error) {
	// The native layer is opportunistic: extraction failure just means a
	// scanned PDF, not a failed acquisition.
	var nativeText string
	if r.native != nil {
		text, err := r.native.ExtractText(ctx, data)
		if err != nil {
			r.logger.Warn("native pdf extraction failed, relying on ocr",
				zap.String("file_name", fileName),
				zap.Error(err))
		} else {
			nativeText = strings.TrimSpace(text)
		}
	}

	ocrText, err := r.ocr.Recognize(ctx, fileName, data)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}

	return &Document{
		FileName:   fileName,
		MimeType:   mimeType,
		Source:     SourceHybridPDF,
		RawText:    ocrText,
		NativeText: nativeText,
	}, nil
}

func isImageExt(ext string) bool {
	switch ext {
	case "jpg", "jpeg", "png", "tiff", "tif", "bmp":
		return true
	}
	return false
}
