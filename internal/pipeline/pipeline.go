// Package pipeline composes acquisition, masking, correction learning,
// extraction, rule validation and verification into the three user-facing
// operations: process, re-extract, correct.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rfqworks/rfqd/internal/audit"
	"github.com/rfqworks/rfqd/internal/columns"
	"github.com/rfqworks/rfqd/internal/config"
	"github.com/rfqworks/rfqd/internal/corrections"
	"github.com/rfqworks/rfqd/internal/ingest"
	"github.com/rfqworks/rfqd/internal/logging"
	"github.com/rfqworks/rfqd/internal/masking"
	"github.com/rfqworks/rfqd/internal/oracle"
	"github.com/rfqworks/rfqd/internal/rfq"
	"github.com/rfqworks/rfqd/internal/validate"
	"github.com/rfqworks/rfqd/internal/verify"
)

// ErrInvalidInput rejects requests with missing required fields before any
// oracle call is attempted.
var ErrInvalidInput = errors.New("invalid input")

// Pipeline wires the processing stages together. All dependencies are
// injected; there is no package-level state beyond metrics.
type Pipeline struct {
	router    *ingest.Router
	masker    *masking.Masker
	store     corrections.Store
	oracle    oracle.Oracle
	validator *validate.Validator
	verifier  *verify.Orchestrator
	audit     *audit.Logger
	logger    *logging.Logger
	maxHints  int
}

// New creates a pipeline.
func New(
	router *ingest.Router,
	masker *masking.Masker,
	store corrections.Store,
	o oracle.Oracle,
	validator *validate.Validator,
	verifier *verify.Orchestrator,
	auditLog *audit.Logger,
	cfg config.CorrectionsConfig,
	logger *logging.Logger,
) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		router:    router,
		masker:    masker,
		store:     store,
		oracle:    o,
		validator: validator,
		verifier:  verifier,
		audit:     auditLog,
		logger:    logger.Named("pipeline"),
		maxHints:  cfg.MaxHints,
	}
}

// Result is the response payload for process and re-extract.
type Result struct {
	Header      rfq.Header          `json:"header"`
	Items       []rfq.RequestedItem `json:"requested_items"`
	Diagnostics []string            `json:"diagnostics,omitempty"`
	Source      ingest.Source       `json:"source,omitempty"`
	// TokensMasked is the count of PII replacements, for client-side
	// transparency. Never the values.
	TokensMasked int `json:"tokens_masked"`
}

// Process runs the full pipeline for one uploaded file: acquire text,
// extract the header, mask PII, gather learned hints, run the primary
// extraction, score every item and escalate band items to the verifier.
// Acquisition and masking failures abort the request; failures scoped to a
// single item never do.
func (p *Pipeline) Process(ctx context.Context, fileName, mimeType string, data []byte) (*Result, error) {
	start := time.Now()
	result, err := p.process(ctx, fileName, mimeType, data)
	ProcessDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		DocumentsProcessed.WithLabelValues("process", "error").Inc()
		return nil, err
	}
	DocumentsProcessed.WithLabelValues("process", "success").Inc()
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, fileName, mimeType string, data []byte) (*Result, error) {
	doc, err := p.router.Acquire(ctx, fileName, mimeType, data)
	if err != nil {
		p.audit.LogEvent(audit.EventIngestion, fileName, audit.StatusFailure, map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("acquire text: %w", err)
	}
	p.audit.LogEvent(audit.EventIngestion, fileName, audit.StatusSuccess, map[string]any{
		"source":          string(doc.Source),
		"extracted_chars": len(doc.RawText),
	})

	masked := p.masker.Process(doc.RawText)
	p.audit.LogPIIMasking(fileName, masked.Stats)

	hints := p.gatherHints(ctx, doc.RawText, masked.MaskedText)

	extraction, err := p.oracle.Extract(ctx, oracle.ExtractRequest{
		Text:  masked.MaskedText,
		Hints: hints,
	})
	if err != nil {
		p.audit.LogEvent(audit.EventAIProcessing, fileName, audit.StatusFailure, map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("extract: %w", err)
	}
	p.audit.LogEvent(audit.EventAIProcessing, fileName, audit.StatusSuccess, map[string]any{
		"items":   len(extraction.Items),
		"dropped": len(extraction.Diagnostics),
	})

	items := p.validator.Annotate(extraction.Items, doc.NativeText, doc.RawText)
	items = p.verifier.Run(ctx, items, "")
	p.observeItems(items)

	p.logger.Info("document processed",
		zap.String("file_name", fileName),
		zap.String("source", string(doc.Source)),
		zap.Int("items", len(items)),
		zap.Int("dropped", len(extraction.Diagnostics)))

	return &Result{
		Header:       masked.Header,
		Items:        items,
		Diagnostics:  extraction.Diagnostics,
		Source:       doc.Source,
		TokensMasked: countTokens(masked.Stats),
	}, nil
}

// ReExtract re-runs extraction over already-acquired text with an explicit
// user instruction. It never consults the correction store and never masks:
// the caller is re-submitting text the system already returned. nativeText
// is optional and improves snippet matching for hybrid PDFs.
func (p *Pipeline) ReExtract(ctx context.Context, text, nativeText, feedback string) (*Result, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: raw_text is required", ErrInvalidInput)
	}

	extraction, err := p.oracle.Extract(ctx, oracle.ExtractRequest{
		Text:     text,
		Feedback: feedback,
	})
	if err != nil {
		DocumentsProcessed.WithLabelValues("re_extract", "error").Inc()
		return nil, fmt.Errorf("extract: %w", err)
	}

	items := p.validator.Annotate(extraction.Items, nativeText, text)
	items = p.verifier.Run(ctx, items, feedback)
	p.observeItems(items)
	DocumentsProcessed.WithLabelValues("re_extract", "success").Inc()

	return &Result{
		Header:      masking.ExtractHeader(text),
		Items:       items,
		Diagnostics: extraction.Diagnostics,
	}, nil
}

// Correct persists one learned correction. The write is acknowledged: when
// Correct returns nil the record is durable and will influence the next
// matching Process call.
func (p *Pipeline) Correct(ctx context.Context, rawTextSnippet string, correctJSON json.RawMessage, fullTextContext string) error {
	if rawTextSnippet == "" {
		return fmt.Errorf("%w: raw_text_snippet is required", ErrInvalidInput)
	}
	if len(correctJSON) == 0 || !json.Valid(correctJSON) {
		return fmt.Errorf("%w: correct_json must be valid JSON", ErrInvalidInput)
	}

	if err := p.store.Put(ctx, rawTextSnippet, correctJSON, fullTextContext); err != nil {
		CorrectionsSaved.WithLabelValues("error").Inc()
		p.audit.LogEvent(audit.EventCorrection, "", audit.StatusFailure, map[string]any{"error": err.Error()})
		return fmt.Errorf("save correction: %w", err)
	}
	CorrectionsSaved.WithLabelValues("success").Inc()
	p.audit.LogEvent(audit.EventCorrection, "", audit.StatusSuccess, nil)
	return nil
}

// gatherHints assembles prompt hints for a document: learned corrections
// first, the detected column layout second. A store read failure costs the
// hints, not the request.
//
// The correction lookup runs on the raw text — it is a local read, and the
// supplier keywords it matches on (company names) are exactly what masking
// removes. Column detection runs on the masked text because its hint embeds
// the header row verbatim and is sent to the oracle.
func (p *Pipeline) gatherHints(ctx context.Context, rawText, maskedText string) []string {
	var hints []string

	matches, err := p.store.Matches(ctx, rawText)
	if err != nil {
		p.logger.Warn("correction lookup failed, extracting without hints", zap.Error(err))
	} else if block := corrections.HintBlock(matches, p.maxHints); block != "" {
		hints = append(hints, block)
		n := len(matches)
		if n > p.maxHints {
			n = p.maxHints
		}
		HintsInjected.Add(float64(n))
	}

	if colHint := columns.Detect(maskedText); colHint != "" {
		hints = append(hints, colHint)
	}
	return hints
}

func (p *Pipeline) observeItems(items []rfq.RequestedItem) {
	floor := p.validator.VerifyFloor()
	threshold := p.validator.AcceptThreshold()
	for _, item := range items {
		label := terminalStatusLabel(string(item.Metadata.Status), item.Metadata.RuleConfidenceScore, floor, threshold)
		ItemsExtracted.WithLabelValues(label).Inc()
	}
}

func countTokens(stats map[string]int) int {
	total := 0
	for _, n := range stats {
		total += n
	}
	return total
}
