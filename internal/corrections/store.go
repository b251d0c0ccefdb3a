package corrections

import (
	"context"
	"encoding/json"
	"time"
)

// Correction is one learned correction record.
type Correction struct {
	ID              string          `json:"id"`
	Fingerprint     string          `json:"fingerprint"`
	RawTextSnippet  string          `json:"raw_text_snippet"`
	CorrectJSON     json.RawMessage `json:"correct_json"`
	FullTextContext string          `json:"full_text_context,omitempty"`
	Keywords        []string        `json:"keywords,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Store persists and retrieves learned corrections.
//
// Put is acknowledged: it returns only after the record is durably written,
// so callers (and tests) can read their own writes. Repeated Puts for the
// same snippet overwrite the prior record (last-write-wins per fingerprint).
//
// Matches returns corrections compatible with the document, most recent
// first: records sharing a supplier/format keyword print with the document,
// plus records whose snippet appears verbatim (after normalization) in it.
type Store interface {
	Put(ctx context.Context, rawTextSnippet string, correctJSON json.RawMessage, fullTextContext string) error
	Matches(ctx context.Context, documentText string) ([]Correction, error)
	All(ctx context.Context) ([]Correction, error)
}
