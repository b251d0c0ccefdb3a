// Package oracle defines the AI extraction service abstraction and its
// Mistral-backed implementation.
//
// One contract, two call sites: the pipeline's primary extraction pass and
// the orchestrator's per-item verification pass. Prompt-construction
// priority is owned here, not by the transport: explicit user feedback
// outranks learned correction hints, which outrank the raw text alone.
package oracle

import (
	"context"
	"fmt"

	"github.com/rfqworks/rfqd/internal/rfq"
)

// ExtractRequest is one primary extraction call.
type ExtractRequest struct {
	// Text is the (masked) document text to extract from.
	Text string
	// Hints are learned-correction and column-layout hint blocks, applied
	// in order after any feedback.
	Hints []string
	// Feedback is an explicit user override. Highest priority; set only by
	// re-extraction.
	Feedback string
}

// Extraction is the outcome of a primary extraction call.
type Extraction struct {
	Items []rfq.RequestedItem
	// Diagnostics describe items dropped for schema mismatches.
	Diagnostics []string
}

// VerifyRequest is one secondary verification call, scoped to a single item.
type VerifyRequest struct {
	RawTextSnippet string
	Item           rfq.RequestedItem
	// Feedback optionally carries a user instruction into the verifier
	// prompt. Same priority rule as extraction.
	Feedback string
}

// Verdict is the verifier's answer for one item.
type Verdict struct {
	IsCorrect  bool           `json:"is_correct"`
	Confidence float64        `json:"confidence_score"`
	Correction *rfq.ItemPatch `json:"correction"`
	Reason     string         `json:"reason"`
}

// Oracle is the extraction service behind a narrow interface. Both methods
// honor ctx deadlines; implementations must not retry malformed responses.
type Oracle interface {
	Extract(ctx context.Context, req ExtractRequest) (*Extraction, error)
	Verify(ctx context.Context, req VerifyRequest) (*Verdict, error)
}

// Unconfigured stands in when no API key is set. Every call fails with
// ErrUnavailable, letting the server start degraded instead of crashing.
type Unconfigured struct{}

func (Unconfigured) Extract(ctx context.Context, req ExtractRequest) (*Extraction, error) {
	return nil, fmt.Errorf("%w: no API key configured", ErrUnavailable)
}

func (Unconfigured) Verify(ctx context.Context, req VerifyRequest) (*Verdict, error) {
	return nil, fmt.Errorf("%w: no API key configured", ErrUnavailable)
}
